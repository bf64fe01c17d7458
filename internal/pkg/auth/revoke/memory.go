package revoke

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local revocation list.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Revoke records token until expiresAt and prunes entries that already expired.
func (s *MemoryStore) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, exp := range s.tokens {
		if !exp.After(now) {
			delete(s.tokens, t)
		}
	}

	if expiresAt.After(now) {
		s.tokens[token] = expiresAt
	}
	return nil
}

// IsRevoked reports whether token is on the list and not yet expired.
func (s *MemoryStore) IsRevoked(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.tokens[token]
	return ok && exp.After(s.now())
}
