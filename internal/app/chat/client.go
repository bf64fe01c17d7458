package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// size of the per-connection outbound queue.
	sendQueueSize = 256

	// bound on each store round trip made on behalf of one inbound event.
	storeTimeout = 5 * time.Second

	// MessageRate and MessageBurst limit send_message events per connection.
	MessageRate  = 2
	MessageBurst = 5

	// WsCloseCodeSessionExpired is a custom WebSocket Close Code (4000-4999 range)
	// telling the client its session token expired or was revoked and it must log in again.
	WsCloseCodeSessionExpired = 4001
)

// SessionCheck reports whether the handshake token is still accepted (for example, not revoked).
type SessionCheck func(ctx context.Context) bool

// Client is one WebSocket connection. The handshake identity is fixed at upgrade time;
// the connection only counts as online after an authenticate event for that identity.
type Client struct {
	id   string
	conn *websocket.Conn

	hub    *Hub
	ingest *Ingestor

	// identity is the user id proven by the handshake token.
	identity int64

	// bound is the user id set by authenticate; only touched by ReadPump.
	bound int64

	// sessionExpiry is when the handshake token stops being valid.
	sessionExpiry time.Time
	sessionCheck  SessionCheck

	// mu guards send against use after Close.
	mu     sync.Mutex
	closed bool
	send   chan []byte

	limiter *rate.Limiter

	ctx    context.Context
	logger zerolog.Logger
}

// NewClient constructs and returns a new Client instance.
// check is consulted on every inbound event and ping; nil means only expiry ends the session.
func NewClient(ctx context.Context, hub *Hub, ingest *Ingestor, wsConn *websocket.Conn, identity int64, expiry time.Time, check SessionCheck) *Client {
	id := uuid.NewString()

	return &Client{
		id:            id,
		conn:          wsConn,
		hub:           hub,
		ingest:        ingest,
		identity:      identity,
		sessionExpiry: expiry,
		sessionCheck:  check,
		send:          make(chan []byte, sendQueueSize),
		limiter:       rate.NewLimiter(rate.Limit(MessageRate), MessageBurst),
		ctx:           ctx,
		logger: logx.Component("client").With().
			Str("conn_id", id).
			Int64("identity", identity).
			Logger(),
	}
}

// ID implements Sink.
func (c *Client) ID() string {
	return c.id
}

// Enqueue implements Sink. It never blocks.
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close implements Sink. WritePump sends a close frame once the queue drains.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), event dispatch, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		if c.sessionEnded() {
			c.closeWith(WsCloseCodeSessionExpired, "Session ended. Please log in again.")
			break
		}

		c.processInboundEvent(frame)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	if err := c.hub.Unregister(c.id); err != nil && !errors.Is(err, ErrHubClosed) {
		c.logger.Warn().Err(err).Msg("Hub unregister failed.")
	}

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundEvent(frame []byte) {
	event, err := DecodeEvent(frame)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid frame")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch event.Type {
	case TypeAuthenticate:
		c.handleAuthenticate(event)

	case TypeJoinRoom:
		c.handleJoinRoom(event)

	case TypeLeaveRoom:
		c.handleLeaveRoom(event)

	case TypeSendMessage:
		c.handleSendMessage(event)

	default:
		c.logger.Warn().Str("event_type", string(event.Type)).Msg("Client sent unsupported event type")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
	}
}

func (c *Client) handleAuthenticate(event Event) {
	userID, err := DecodeID(event.Payload)
	if err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if userID != c.identity {
		c.logger.Warn().Int64("claimed_user_id", userID).Msg("Authenticate rejected: identity mismatch.")
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	if err := c.hub.Authenticate(c.id, userID); err != nil {
		c.logger.Warn().Err(err).Msg("Authenticate failed.")
		return
	}
	c.bound = userID
}

func (c *Client) handleJoinRoom(event Event) {
	roomID, err := DecodeID(event.Payload)
	if err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	if cErr := c.ingest.CheckRoom(ctx, roomID); cErr != nil {
		c.SendError(cErr)
		return
	}

	if err := c.hub.JoinRoom(c.id, roomID); err != nil {
		c.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Join room failed.")
	}
}

func (c *Client) handleLeaveRoom(event Event) {
	roomID, err := DecodeID(event.Payload)
	if err != nil {
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if err := c.hub.LeaveRoom(c.id, roomID); err != nil {
		c.logger.Warn().Err(err).Int64("room_id", roomID).Msg("Leave room failed.")
	}
}

func (c *Client) handleSendMessage(event Event) {
	if c.bound == 0 {
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	payload, err := DecodeSendMessage(event.Payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid send_message payload")
		c.SendError(errs.NewError(errs.ErrInvalidParams))
		return
	}

	if payload.UserID != nil && *payload.UserID != c.bound {
		c.logger.Warn().Int64("claimed_user_id", *payload.UserID).Msg("send_message rejected: sender mismatch.")
		c.SendError(errs.NewError(errs.ErrUnauthorized))
		return
	}

	if !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	_, cErr := c.ingest.Submit(ctx, SubmitRequest{
		RoomID:  *payload.RoomID,
		UserID:  c.bound,
		Content: *payload.Content,
		Kind:    payload.Type,
	})
	if cErr != nil {
		c.SendError(cErr)
	}
}

// WritePump handles writing frames from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if c.sessionEnded() {
				c.closeWith(WsCloseCodeSessionExpired, "Session ended. Please log in again.")
				return
			}

			if !c.writePingMessage() {
				return
			}
		}
	}
}

// writeQueuedMessage handles frames pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// sessionEnded reports whether the handshake token expired or is no longer accepted.
func (c *Client) sessionEnded() bool {
	if !c.sessionExpiry.IsZero() && time.Now().After(c.sessionExpiry) {
		return true
	}
	if c.sessionCheck == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	return !c.sessionCheck(ctx)
}

// closeWith sends a close frame with a custom code. WriteControl may run concurrently
// with WritePump, so both pumps can call it.
func (c *Client) closeWith(code int, reason string) {
	c.logger.Info().Int("close_code", code).Str("reason", reason).Msg("Closing WebSocket connection.")

	deadline := time.Now().Add(writeWait)
	if err := c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to send WS close message.")
	}
}

// SendError queues an error event for this connection only.
func (c *Client) SendError(err error) {
	customErr := errs.From(err)

	data, encErr := EncodeEvent(TypeError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
	if encErr != nil {
		c.logger.Error().Err(encErr).Msg("Failed to build error event")
		return
	}

	if !c.Enqueue(data) {
		c.logger.Warn().Int("code", customErr.Code).Msg("Client send queue full, dropping error event")
	}
}
