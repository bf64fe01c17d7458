package revoke

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"punkspace/internal/pkg/logx"
)

const keyPrefix = "punkspace:revoked:"

// RedisStore keeps revoked tokens as expiring Redis keys.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to redisURL and verifies the connection with PING.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Revoke stores token until expiresAt. Already expired tokens are ignored.
func (s *RedisStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.client.Set(ctx, keyPrefix+token, 1, ttl).Err()
}

// IsRevoked fails closed: when Redis cannot answer, the token is treated as revoked.
func (s *RedisStore) IsRevoked(ctx context.Context, token string) bool {
	n, err := s.client.Exists(ctx, keyPrefix+token).Result()
	if err != nil {
		logx.Error(err, "revocation lookup failed")
		return true
	}
	return n > 0
}

// Close releases the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
