package handler

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punkspace/internal/app/chat"
	"punkspace/internal/pkg/errs"
)

type sessionData struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

// registerAndLogin spends two requests of the auth limiter budget.
func (e *testEnv) registerAndLogin(t *testing.T, username, password string) sessionData {
	t.Helper()
	creds := map[string]string{"username": username, "password": password}

	_, body := e.call(t, http.MethodPost, "/api/register", "", creds)
	require.Equal(t, 0, body.Code, body.Message)

	_, body = e.call(t, http.MethodPost, "/api/login", "", creds)
	require.Equal(t, 0, body.Code, body.Message)

	return decodeData[sessionData](t, body)
}

func (e *testEnv) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws?token=" + url.QueryEscape(token)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ chat.EventType, payload any) {
	t.Helper()

	frame, err := chat.EncodeEvent(typ, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// readUntil skips frames until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ chat.EventType) chat.Event {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		ev, err := chat.DecodeEvent(data)
		require.NoError(t, err)
		if ev.Type == typ {
			return ev
		}
	}
}

func readCountUntil(t *testing.T, conn *websocket.Conn, want int) {
	t.Helper()

	for {
		ev := readUntil(t, conn, chat.TypeOnlineCountUpdate)
		var count int
		require.NoError(t, json.Unmarshal(ev.Payload, &count))
		if count == want {
			return
		}
	}
}

func readError(t *testing.T, conn *websocket.Conn) chat.ErrorPayload {
	t.Helper()

	var payload chat.ErrorPayload
	require.NoError(t, json.Unmarshal(readUntil(t, conn, chat.TypeError).Payload, &payload))
	return payload
}

func waitForListeners(t *testing.T, env *testEnv, roomID int64, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return env.deps.Hub.SubscriberCount(roomID) == want
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatRoundTripAndPresence(t *testing.T) {
	env := newTestEnv(t)

	u1 := env.registerAndLogin(t, "U1", "pogo123")
	u2 := env.registerAndLogin(t, "U2", "pogo456")

	c1 := env.dial(t, u1.Token)
	send(t, c1, chat.TypeAuthenticate, u1.User.ID)
	readCountUntil(t, c1, 1)
	send(t, c1, chat.TypeJoinRoom, 1)
	waitForListeners(t, env, 1, 1)

	c2 := env.dial(t, u2.Token)
	send(t, c2, chat.TypeAuthenticate, u2.User.ID)
	readCountUntil(t, c2, 2)
	send(t, c2, chat.TypeJoinRoom, 1)
	waitForListeners(t, env, 1, 2)

	send(t, c2, chat.TypeSendMessage, map[string]any{"room_id": 1, "user_id": u2.User.ID, "content": "hi"})

	var got chat.MessageEvent
	require.NoError(t, json.Unmarshal(readUntil(t, c1, chat.TypeNewMessage).Payload, &got))
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "U2", got.Username)
	assert.Equal(t, int64(1), got.RoomID)
	assert.Equal(t, u2.User.ID, got.UserID)
	assert.Equal(t, chat.KindText, got.Type)
	assert.NotZero(t, got.ID)
	assert.False(t, got.Timestamp.IsZero())

	_, body := env.call(t, http.MethodGet, "/api/rooms/1/messages", "", nil)
	history := decodeData[[]chat.MessageEvent](t, body)
	matches := 0
	for _, m := range history {
		if m.ID == got.ID {
			matches++
			assert.Equal(t, "hi", m.Content)
		}
	}
	assert.Equal(t, 1, matches)

	_, body = env.call(t, http.MethodGet, "/api/stats/online", "", nil)
	assert.Len(t, decodeData[[]json.RawMessage](t, body), 2)

	require.NoError(t, c1.Close())

	var count int
	require.NoError(t, json.Unmarshal(readUntil(t, c2, chat.TypeOnlineCountUpdate).Payload, &count))
	assert.Equal(t, 1, count)
	waitForListeners(t, env, 1, 1)
}

func TestWebSocketHandshakeRequiresIdentity(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws"

	_, res, err := websocket.DefaultDialer.Dial(u, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	_, res, err = websocket.DefaultDialer.Dial(u+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestWebSocketRejectsInvalidEvents(t *testing.T) {
	env := newTestEnv(t)
	me, token := env.addUser(t, "rat")
	other, _ := env.addUser(t, "scabies")

	conn := env.dial(t, token)

	send(t, conn, chat.TypeSendMessage, map[string]any{"room_id": 1, "content": "too early"})
	assert.Equal(t, errs.ErrUnauthorized, readError(t, conn).Code)

	send(t, conn, chat.TypeAuthenticate, other.ID)
	assert.Equal(t, errs.ErrUnauthorized, readError(t, conn).Code)

	send(t, conn, chat.TypeAuthenticate, me.ID)
	readCountUntil(t, conn, 1)

	send(t, conn, chat.TypeJoinRoom, 99)
	assert.Equal(t, errs.ErrRoomNotFound, readError(t, conn).Code)

	send(t, conn, chat.TypeSendMessage, map[string]any{"room_id": 1, "user_id": other.ID, "content": "spoof"})
	assert.Equal(t, errs.ErrUnauthorized, readError(t, conn).Code)

	send(t, conn, chat.TypeSendMessage, map[string]any{"room_id": 1, "content": "https://evil.example/x.png", "type": "image"})
	assert.Equal(t, errs.ErrImageReferenceInvalid, readError(t, conn).Code)

	send(t, conn, chat.TypeSendMessage, map[string]any{"room_id": 1, "content": strings.Repeat("x", chat.MaxContentBytes+1)})
	assert.Equal(t, errs.ErrMessageContentTooLong, readError(t, conn).Code)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	assert.Empty(t, env.store.messages)
}

func TestImageMessageFromUpload(t *testing.T) {
	env := newTestEnv(t)
	me, token := env.addUser(t, "siouxsie")

	_, body := multipartUpload(t, env, token, "pic.png", pngBytes)
	require.Equal(t, 0, body.Code, body.Message)
	ref := decodeData[map[string]string](t, body)["url"]

	conn := env.dial(t, token)
	send(t, conn, chat.TypeAuthenticate, me.ID)
	readCountUntil(t, conn, 1)
	send(t, conn, chat.TypeJoinRoom, 2)
	waitForListeners(t, env, 2, 1)

	send(t, conn, chat.TypeSendMessage, map[string]any{"room_id": 2, "content": ref, "type": "image"})

	var got chat.MessageEvent
	require.NoError(t, json.Unmarshal(readUntil(t, conn, chat.TypeNewMessage).Payload, &got))
	assert.Equal(t, chat.KindImage, got.Type)
	assert.Equal(t, ref, got.Content)
}

func TestLogoutEndsOpenWebSocket(t *testing.T) {
	env := newTestEnv(t)
	me, token := env.addUser(t, "tommy")

	conn := env.dial(t, token)
	send(t, conn, chat.TypeAuthenticate, me.ID)
	readCountUntil(t, conn, 1)

	_, body := env.call(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, 0, body.Code, body.Message)

	send(t, conn, chat.TypeJoinRoom, 1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	assert.True(t, websocket.IsCloseError(err, chat.WsCloseCodeSessionExpired), "got %v", err)

	require.Eventually(t, func() bool {
		return env.deps.Hub.OnlineCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, env.deps.Hub.SubscriberCount(1))
}
