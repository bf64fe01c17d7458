/*
Package revoke keeps the list of session tokens invalidated by logout until they expire.

Two backends exist: Redis, shared by every server process, and an in-process map used
when no Redis URL is configured.
*/
package revoke

import (
	"context"
	"time"
)

// Store records revoked tokens until their natural expiry.
type Store interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, token string) bool
}
