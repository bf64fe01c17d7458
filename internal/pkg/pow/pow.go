/*
Package pow implements a Proof-of-Work gate used to slow down scripted account registration.

A client fetches a nonce, searches for a counter whose SHA-256(nonce+counter) hex digest
starts with `difficulty` zeros, and exchanges the proof for a short-lived single-use token.
*/
package pow

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// TokenHeaderKey is the HTTP header carrying the proof token.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is how long an issued proof token stays valid.
	ProofTokenDuration = 2 * time.Minute

	// NonceExpiryDuration is how long a challenge nonce stays valid.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceInvalid       = errors.New("nonce expired or invalid")
	ErrProofInsufficient  = errors.New("proof does not meet difficulty requirement")
	ErrNonceAlreadyIssued = errors.New("nonce consumed by concurrent request")
)

// PoWManager issues challenges and proof tokens. It is safe for concurrent use.
type PoWManager struct {
	difficulty int

	mu         sync.Mutex
	nonceStore map[string]time.Time
	tokenStore map[string]time.Time
}

// NewPoWManager returns a manager for the given difficulty. Its cleanup loop stops with ctx.
// A difficulty of 0 disables the gate.
func NewPoWManager(ctx context.Context, difficulty int) *PoWManager {
	mgr := &PoWManager{
		difficulty: difficulty,
		nonceStore: make(map[string]time.Time),
		tokenStore: make(map[string]time.Time),
	}

	if mgr.Enabled() {
		go mgr.cleanupExpiredEntries(ctx)
	}

	return mgr
}

// Enabled reports whether proofs are required.
func (m *PoWManager) Enabled() bool {
	return m.difficulty > 0
}

// Difficulty returns the number of leading hex zeros a proof must have.
func (m *PoWManager) Difficulty() int {
	return m.difficulty
}

// GenerateNonce creates and stores a fresh challenge nonce.
func (m *PoWManager) GenerateNonce() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.NewString()
	m.nonceStore[nonce] = time.Now().Add(NonceExpiryDuration)
	return nonce
}

// Satisfies reports whether nonce+counter meets difficulty.
func Satisfies(nonce, counter string, difficulty int) bool {
	hash := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(hash[:]), strings.Repeat("0", difficulty))
}

// ValidateProof checks the proof for nonce, consumes the nonce and returns a proof token.
func (m *PoWManager) ValidateProof(nonce, counter string) (string, error) {
	m.mu.Lock()
	expiry, ok := m.nonceStore[nonce]
	m.mu.Unlock()

	if !ok || time.Now().After(expiry) {
		return "", ErrNonceInvalid
	}

	if !Satisfies(nonce, counter, m.difficulty) {
		return "", ErrProofInsufficient
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, stillExists := m.nonceStore[nonce]; !stillExists {
		return "", ErrNonceAlreadyIssued
	}
	delete(m.nonceStore, nonce)

	token := uuid.NewString()
	m.tokenStore[token] = time.Now().Add(ProofTokenDuration)
	return token, nil
}

// ConsumeProofToken checks the request's proof token and invalidates it.
// It always succeeds when the gate is disabled.
func (m *PoWManager) ConsumeProofToken(r *http.Request) bool {
	if !m.Enabled() {
		return true
	}

	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokenStore[token]
	if !ok {
		return false
	}
	delete(m.tokenStore, token)

	return time.Now().Before(expiry)
}

func (m *PoWManager) cleanupExpiredEntries(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for nonce, expiry := range m.nonceStore {
				if now.After(expiry) {
					delete(m.nonceStore, nonce)
				}
			}
			for token, expiry := range m.tokenStore {
				if now.After(expiry) {
					delete(m.tokenStore, token)
				}
			}
			m.mu.Unlock()
		}
	}
}
