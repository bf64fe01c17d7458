package chat

import (
	"slices"
	"sync"
)

// Registry keeps the many-to-many relation between connections and rooms.
// Membership is independent of presence: an unauthenticated connection may listen to a room.
type Registry struct {
	mu sync.RWMutex

	// rooms maps room id to its subscribers keyed by connection id.
	rooms map[int64]map[string]Sink

	// memberships is the reverse index used to drop a connection from every room at once.
	memberships map[string]map[int64]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:       make(map[int64]map[string]Sink),
		memberships: make(map[string]map[int64]struct{}),
	}
}

// Join subscribes sink to roomID. It reports false when the subscription already existed.
func (g *Registry) Join(sink Sink, roomID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	connID := sink.ID()

	subs, ok := g.rooms[roomID]
	if !ok {
		subs = make(map[string]Sink)
		g.rooms[roomID] = subs
	}
	if _, exists := subs[connID]; exists {
		return false
	}
	subs[connID] = sink

	joined, ok := g.memberships[connID]
	if !ok {
		joined = make(map[int64]struct{})
		g.memberships[connID] = joined
	}
	joined[roomID] = struct{}{}

	return true
}

// Leave unsubscribes connID from roomID. Leaving a room that was never joined is a no-op.
func (g *Registry) Leave(connID string, roomID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.leaveLocked(connID, roomID)
}

func (g *Registry) leaveLocked(connID string, roomID int64) bool {
	subs, ok := g.rooms[roomID]
	if !ok {
		return false
	}
	if _, exists := subs[connID]; !exists {
		return false
	}

	delete(subs, connID)
	if len(subs) == 0 {
		delete(g.rooms, roomID)
	}

	if joined, ok := g.memberships[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(g.memberships, connID)
		}
	}

	return true
}

// RemoveConn drops connID from every room and returns the rooms it left.
func (g *Registry) RemoveConn(connID string) []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	left := make([]int64, 0, len(g.memberships[connID]))
	for roomID := range g.memberships[connID] {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		g.leaveLocked(connID, roomID)
	}

	slices.Sort(left)
	return left
}

// Subscribers returns a snapshot of the sinks subscribed to roomID.
func (g *Registry) Subscribers(roomID int64) []Sink {
	g.mu.RLock()
	defer g.mu.RUnlock()

	subs := g.rooms[roomID]
	out := make([]Sink, 0, len(subs))
	for _, sink := range subs {
		out = append(out, sink)
	}
	return out
}

// RoomsOf returns the rooms connID is subscribed to in ascending order.
func (g *Registry) RoomsOf(connID string) []int64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	rooms := make([]int64, 0, len(g.memberships[connID]))
	for roomID := range g.memberships[connID] {
		rooms = append(rooms, roomID)
	}

	slices.Sort(rooms)
	return rooms
}
