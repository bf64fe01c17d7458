package chat

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"punkspace/internal/pkg/logx"
)

func init() {
	logx.SetOutput(io.Discard, zerolog.Disabled)
}

// fakeSink records frames; capacity < 0 means unbounded.
type fakeSink struct {
	id       string
	capacity int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newSink(id string) *fakeSink {
	return &fakeSink{id: id, capacity: -1}
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) Enqueue(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || (s.capacity >= 0 && len(s.frames) >= s.capacity) {
		return false
	}
	s.frames = append(s.frames, data)
	return true
}

func (s *fakeSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// events decodes every frame received so far.
func (s *fakeSink) events(t *testing.T) []Event {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, 0, len(s.frames))
	for _, f := range s.frames {
		var ev Event
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (s *fakeSink) eventsOfType(t *testing.T, typ EventType) []Event {
	t.Helper()

	var out []Event
	for _, ev := range s.events(t) {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// lastCount returns the payload of the latest online_count_update, or -1.
func (s *fakeSink) lastCount(t *testing.T) int {
	t.Helper()

	counts := s.eventsOfType(t, TypeOnlineCountUpdate)
	if len(counts) == 0 {
		return -1
	}

	var n int
	require.NoError(t, json.Unmarshal(counts[len(counts)-1].Payload, &n))
	return n
}

// flush waits until every operation queued on h so far has been applied.
func flush(t *testing.T, h *Hub) {
	t.Helper()
	require.NoError(t, h.Unregister("flush-barrier"))
}
