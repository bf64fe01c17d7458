package chat

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSendsCurrentCountOnRegister(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	a := newSink("a")
	require.NoError(t, h.Register(a))
	require.NoError(t, h.Authenticate("a", 1))

	b := newSink("b")
	require.NoError(t, h.Register(b))

	assert.Equal(t, 1, b.lastCount(t))
	assert.Equal(t, 1, a.lastCount(t))
}

func TestHubBroadcastsCountOnAuthenticateAndDisconnect(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	a, b, c := newSink("a"), newSink("b"), newSink("c")
	for _, s := range []*fakeSink{a, b, c} {
		require.NoError(t, h.Register(s))
	}

	require.NoError(t, h.Authenticate("a", 1))
	require.NoError(t, h.Authenticate("b", 1))
	assert.Equal(t, 1, c.lastCount(t), "unauthenticated connections still receive counts")
	assert.Equal(t, 1, h.OnlineCount())

	require.NoError(t, h.Unregister("a"))
	assert.Equal(t, 1, c.lastCount(t))
	assert.True(t, a.isClosed())

	require.NoError(t, h.Unregister("b"))
	assert.Equal(t, 0, c.lastCount(t))
	assert.Empty(t, h.OnlineUserIDs())
}

func TestHubUnknownDisconnectIsNoop(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	a := newSink("a")
	require.NoError(t, h.Register(a))
	before := len(a.events(t))

	require.NoError(t, h.Unregister("ghost"))

	assert.Len(t, a.events(t), before)
	assert.ErrorIs(t, h.Authenticate("ghost", 3), ErrUnknownConnection)
	assert.ErrorIs(t, h.JoinRoom("ghost", 1), ErrUnknownConnection)
}

func TestHubBroadcastReachesOnlyRoomSubscribers(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	inRoom, elsewhere, idle := newSink("in"), newSink("else"), newSink("idle")
	for _, s := range []*fakeSink{inRoom, elsewhere, idle} {
		require.NoError(t, h.Register(s))
	}
	require.NoError(t, h.JoinRoom("in", 1))
	require.NoError(t, h.JoinRoom("in", 1))
	require.NoError(t, h.JoinRoom("else", 2))

	frame, err := EncodeEvent(TypeNewMessage, MessageEvent{ID: 1, RoomID: 1, Content: "oi"})
	require.NoError(t, err)
	require.NoError(t, h.BroadcastRoom(1, frame))
	flush(t, h)

	assert.Len(t, inRoom.eventsOfType(t, TypeNewMessage), 1, "joined twice, delivered once")
	assert.Empty(t, elsewhere.eventsOfType(t, TypeNewMessage))
	assert.Empty(t, idle.eventsOfType(t, TypeNewMessage))

	require.NoError(t, h.LeaveRoom("in", 1))
	require.NoError(t, h.BroadcastRoom(1, frame))
	flush(t, h)
	assert.Len(t, inRoom.eventsOfType(t, TypeNewMessage), 1)
}

func TestHubPreservesPerConnectionOrder(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	a, b := newSink("a"), newSink("b")
	require.NoError(t, h.Register(a))
	require.NoError(t, h.Register(b))
	require.NoError(t, h.JoinRoom("a", 1))
	require.NoError(t, h.JoinRoom("b", 1))

	const n = 200
	for i := 1; i <= n; i++ {
		frame, err := EncodeEvent(TypeNewMessage, MessageEvent{ID: int64(i), RoomID: 1, Content: fmt.Sprint(i)})
		require.NoError(t, err)
		require.NoError(t, h.BroadcastRoom(1, frame))
	}
	flush(t, h)

	for _, s := range []*fakeSink{a, b} {
		msgs := s.eventsOfType(t, TypeNewMessage)
		require.Len(t, msgs, n)
		for i, ev := range msgs {
			var m MessageEvent
			require.NoError(t, json.Unmarshal(ev.Payload, &m))
			assert.Equal(t, int64(i+1), m.ID)
		}
	}
}

func TestHubDisconnectsSlowConsumers(t *testing.T) {
	h := NewHub()
	defer h.Shutdown()

	fast := newSink("fast")
	slow := newSink("slow")
	slow.capacity = 1 // room for the initial count only

	require.NoError(t, h.Register(fast))
	require.NoError(t, h.Register(slow))
	require.NoError(t, h.JoinRoom("fast", 1))
	require.NoError(t, h.JoinRoom("slow", 1))
	require.NoError(t, h.Authenticate("fast", 1))

	assert.True(t, slow.isClosed())
	assert.Empty(t, h.RoomsOf("slow"))
	assert.Equal(t, []int64{1}, h.RoomsOf("fast"))
}

func TestHubShutdownClosesSinksAndRejectsCalls(t *testing.T) {
	h := NewHub()

	a := newSink("a")
	require.NoError(t, h.Register(a))

	h.Shutdown()
	h.Shutdown()

	assert.True(t, a.isClosed())
	assert.ErrorIs(t, h.Register(newSink("b")), ErrHubClosed)
	assert.ErrorIs(t, h.BroadcastRoom(1, []byte("{}")), ErrHubClosed)
}

func TestHubCallsAfterShutdownAlwaysFail(t *testing.T) {
	h := NewHub()
	h.Shutdown()

	for i := 0; i < 500; i++ {
		require.ErrorIs(t, h.BroadcastRoom(1, []byte("{}")), ErrHubClosed)
		require.ErrorIs(t, h.JoinRoom("a", 1), ErrHubClosed)
	}
}

func TestHubCountUpdatesMatchModelUnderRandomSequences(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		h := NewHub()

		observer := newSink("observer")
		require.NoError(t, h.Register(observer))

		model := map[string]int64{}
		next := 0

		for step := 0; step < 150; step++ {
			live := make([]string, 0, len(model))
			for id := range model {
				live = append(live, id)
			}
			slices.Sort(live)

			switch op := rng.Intn(3); {
			case op == 0 || len(live) == 0:
				id := fmt.Sprintf("c%d", next)
				next++
				require.NoError(t, h.Register(newSink(id)))
				model[id] = 0

			case op == 1:
				id := live[rng.Intn(len(live))]
				userID := int64(rng.Intn(4) + 1)
				require.NoError(t, h.Authenticate(id, userID))
				model[id] = userID
				require.Equal(t, len(onlineOf(model)), observer.lastCount(t), "seed %d step %d", seed, step)

			default:
				id := live[rng.Intn(len(live))]
				require.NoError(t, h.Unregister(id))
				delete(model, id)
				require.Equal(t, len(onlineOf(model)), observer.lastCount(t), "seed %d step %d", seed, step)
			}

			require.Equal(t, onlineOf(model), h.OnlineUserIDs(), "seed %d step %d", seed, step)
		}

		h.Shutdown()
	}
}
