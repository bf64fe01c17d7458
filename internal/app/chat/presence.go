package chat

import (
	"slices"
	"sync"
)

// Presence tracks which user each live connection is bound to and derives the set of
// distinct online users. Unauthenticated connections are tracked but count for nothing.
type Presence struct {
	mu sync.RWMutex

	// conns maps connection id to bound user id; 0 means not authenticated yet.
	conns map[string]int64

	// users counts live authenticated connections per user id.
	users map[int64]int
}

func NewPresence() *Presence {
	return &Presence{
		conns: make(map[string]int64),
		users: make(map[int64]int),
	}
}

// Connect registers an unauthenticated connection. Connecting twice is a no-op.
func (p *Presence) Connect(connID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.conns[connID]; !ok {
		p.conns[connID] = 0
	}
}

// Authenticate binds connID to userID, replacing any previous binding of that connection.
// It returns the resulting online count, or false when connID was never connected.
func (p *Presence) Authenticate(connID string, userID int64) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	previous, ok := p.conns[connID]
	if !ok {
		return len(p.users), false
	}

	if previous != userID {
		p.release(previous)
		p.conns[connID] = userID
		p.users[userID]++
	}

	return len(p.users), true
}

// Disconnect drops connID and its binding. It returns the resulting online count and
// whether the connection was known.
func (p *Presence) Disconnect(connID string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	userID, ok := p.conns[connID]
	if !ok {
		return len(p.users), false
	}

	delete(p.conns, connID)
	p.release(userID)

	return len(p.users), true
}

func (p *Presence) release(userID int64) {
	if userID == 0 {
		return
	}

	if p.users[userID] <= 1 {
		delete(p.users, userID)
		return
	}
	p.users[userID]--
}

// Count returns the number of distinct online users.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.users)
}

// OnlineUserIDs returns the distinct online user ids in ascending order.
func (p *Presence) OnlineUserIDs() []int64 {
	p.mu.RLock()
	ids := make([]int64, 0, len(p.users))
	for id := range p.users {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// UserOf returns the user bound to connID, or 0.
func (p *Presence) UserOf(connID string) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.conns[connID]
}
