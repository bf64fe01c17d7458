/*
Package chat contains the real-time core: presence tracking, room subscriptions, message
ingestion and the WebSocket clients that feed them.

This file defines the Hub, the single event loop that owns every presence and membership
change. Serializing those changes, and every broadcast, through one goroutine gives all
recipients the same total order and keeps per-connection delivery FIFO.
*/
package chat

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"punkspace/internal/pkg/logx"
)

const opChannelBuffer = 1024

// ErrHubClosed is returned by Hub methods called after Shutdown.
var ErrHubClosed = errors.New("chat hub is shut down")

// ErrUnknownConnection is returned for operations on a connection that is not registered.
var ErrUnknownConnection = errors.New("connection is not registered")

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opAuthenticate
	opJoin
	opLeave
	opBroadcast
)

type op struct {
	kind   opKind
	sink   Sink
	connID string
	userID int64
	roomID int64
	data   []byte

	// result is nil for fire-and-forget operations.
	result chan error
}

// Hub coordinates presence, room membership and fan-out for all live connections.
type Hub struct {
	presence *Presence
	registry *Registry

	// sinks is only touched by the run goroutine.
	sinks map[string]Sink

	ops  chan op
	done chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub and starts its event loop.
func NewHub() *Hub {
	h := &Hub{
		presence: NewPresence(),
		registry: NewRegistry(),
		sinks:    make(map[string]Sink),
		ops:      make(chan op, opChannelBuffer),
		done:     make(chan struct{}),
		logger:   logx.Component("hub"),
	}

	h.wg.Add(1)
	go h.run()

	return h
}

func (h *Hub) run() {
	defer h.wg.Done()

	h.logger.Info().Msg("Hub loop started.")

	for {
		select {
		case <-h.done:
			h.closeAll()
			h.logger.Info().Msg("Hub loop stopped.")
			return

		case o := <-h.ops:
			err := h.apply(o)
			if o.result != nil {
				o.result <- err
			}
		}
	}
}

func (h *Hub) apply(o op) error {
	switch o.kind {
	case opRegister:
		return h.register(o.sink)

	case opUnregister:
		h.disconnect(o.connID)
		return nil

	case opAuthenticate:
		count, ok := h.presence.Authenticate(o.connID, o.userID)
		if !ok {
			return ErrUnknownConnection
		}
		h.logger.Debug().Str("conn_id", o.connID).Int64("user_id", o.userID).Int("online", count).
			Msg("Connection authenticated.")
		h.broadcastCount(count)
		return nil

	case opJoin:
		sink, ok := h.sinks[o.connID]
		if !ok {
			return ErrUnknownConnection
		}
		if h.registry.Join(sink, o.roomID) {
			h.logger.Debug().Str("conn_id", o.connID).Int64("room_id", o.roomID).Msg("Connection joined room.")
		}
		return nil

	case opLeave:
		if _, ok := h.sinks[o.connID]; !ok {
			return ErrUnknownConnection
		}
		h.registry.Leave(o.connID, o.roomID)
		return nil

	case opBroadcast:
		h.deliver(h.registry.Subscribers(o.roomID), o.data)
		return nil
	}

	return nil
}

func (h *Hub) register(sink Sink) error {
	connID := sink.ID()
	if _, exists := h.sinks[connID]; exists {
		return errors.New("connection id already registered")
	}

	h.sinks[connID] = sink
	h.presence.Connect(connID)

	h.logger.Info().Str("conn_id", connID).Int("connections", len(h.sinks)).Msg("Connection registered.")

	data, err := EncodeEvent(TypeOnlineCountUpdate, h.presence.Count())
	if err != nil {
		return err
	}
	h.deliver([]Sink{sink}, data)
	return nil
}

// disconnect removes every trace of connID and closes its sink.
func (h *Hub) disconnect(connID string) {
	sink, ok := h.sinks[connID]
	if !ok {
		return
	}

	delete(h.sinks, connID)
	left := h.registry.RemoveConn(connID)
	sink.Close()

	count, known := h.presence.Disconnect(connID)

	h.logger.Info().Str("conn_id", connID).Ints64("rooms_left", left).Int("connections", len(h.sinks)).
		Msg("Connection unregistered.")

	if known {
		h.broadcastCount(count)
	}
}

func (h *Hub) broadcastCount(count int) {
	data, err := EncodeEvent(TypeOnlineCountUpdate, count)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode online count update.")
		return
	}

	all := make([]Sink, 0, len(h.sinks))
	for _, sink := range h.sinks {
		all = append(all, sink)
	}
	h.deliver(all, data)
}

// deliver fans data out and disconnects every recipient whose queue is full.
func (h *Hub) deliver(sinks []Sink, data []byte) {
	for _, slow := range Deliver(sinks, data) {
		h.logger.Warn().Str("conn_id", slow.ID()).Msg("Client send queue full or closed, unregistering.")
		h.disconnect(slow.ID())
	}
}

func (h *Hub) closeAll() {
	for connID, sink := range h.sinks {
		sink.Close()
		delete(h.sinks, connID)
	}
}

// submit queues o and, for synchronous operations, waits for its result.
// After Shutdown it always fails: ops may still have buffer room, so done is checked first.
func (h *Hub) submit(o op) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.ops <- o:
	case <-h.done:
		return ErrHubClosed
	}

	if o.result == nil {
		return nil
	}

	select {
	case err := <-o.result:
		return err
	case <-h.done:
		return ErrHubClosed
	}
}

func (h *Hub) call(o op) error {
	o.result = make(chan error, 1)
	return h.submit(o)
}

// Register adds a connection. The sink immediately receives the current online count.
func (h *Hub) Register(sink Sink) error {
	return h.call(op{kind: opRegister, sink: sink})
}

// Unregister removes a connection from presence and every room. Unknown ids are ignored.
func (h *Hub) Unregister(connID string) error {
	return h.call(op{kind: opUnregister, connID: connID})
}

// Authenticate binds a connection to a user and broadcasts the new online count to everyone.
func (h *Hub) Authenticate(connID string, userID int64) error {
	return h.call(op{kind: opAuthenticate, connID: connID, userID: userID})
}

// JoinRoom subscribes a connection to a room. Joining twice is a no-op.
func (h *Hub) JoinRoom(connID string, roomID int64) error {
	return h.call(op{kind: opJoin, connID: connID, roomID: roomID})
}

// LeaveRoom unsubscribes a connection from a room.
func (h *Hub) LeaveRoom(connID string, roomID int64) error {
	return h.call(op{kind: opLeave, connID: connID, roomID: roomID})
}

// BroadcastRoom queues a frame for every subscriber of roomID and returns without waiting.
func (h *Hub) BroadcastRoom(roomID int64, data []byte) error {
	return h.submit(op{kind: opBroadcast, roomID: roomID, data: data})
}

// OnlineUserIDs returns the distinct users with at least one authenticated connection.
func (h *Hub) OnlineUserIDs() []int64 {
	return h.presence.OnlineUserIDs()
}

// OnlineCount returns the number of distinct online users.
func (h *Hub) OnlineCount() int {
	return h.presence.Count()
}

// SubscriberCount returns how many connections currently listen to roomID.
func (h *Hub) SubscriberCount(roomID int64) int {
	return len(h.registry.Subscribers(roomID))
}

// RoomsOf returns the rooms a connection is subscribed to.
func (h *Hub) RoomsOf(connID string) []int64 {
	return h.registry.RoomsOf(connID)
}

// Shutdown stops the event loop and closes every registered sink. It is safe to call twice.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		h.logger.Info().Msg("Shutting down hub...")
		close(h.done)
	})
	h.wg.Wait()
}
