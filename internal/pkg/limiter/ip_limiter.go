/*
Package limiter provides per-key rate limiting based on token buckets (rate.Limiter).

Keys are usually client IP addresses. A background goroutine drops limiters whose
bucket has refilled so idle clients do not accumulate in memory.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/resp"
)

const cleanupInterval = 3 * time.Minute

// IPRateLimiter hands out one rate.Limiter per client key.
type IPRateLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	// r is the refill rate in events per second; b is the bucket size.
	r rate.Limit
	b int
}

// NewIPRateLimiter creates a limiter and starts its cleanup loop, which stops with ctx.
func NewIPRateLimiter(ctx context.Context, r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanUpVisitors(ctx)

	return i
}

// GetLimiter returns the limiter for key, creating it on first use.
func (i *IPRateLimiter) GetLimiter(key string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[key]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[key]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[key] = limiter
	}
	return limiter
}

// Allow consumes one token for key.
func (i *IPRateLimiter) Allow(key string) bool {
	return i.GetLimiter(key).Allow()
}

// prune drops every limiter whose bucket is full again and returns how many were removed.
func (i *IPRateLimiter) prune(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for key, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, key)
			removed++
		}
	}
	return removed
}

func (i *IPRateLimiter) cleanUpVisitors(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := i.prune(now)

			i.mu.RLock()
			remaining := len(i.limits)
			i.mu.RUnlock()

			logx.Debug("Rate limiter cleanup finished", "removed", removed, "remaining", remaining)
		}
	}
}

// ClientIP extracts the host part of r.RemoteAddr (already rewritten by chi's RealIP).
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if ip == "" {
		ip = "unknown_ip"
	}
	return ip
}

// Middleware rejects requests over the limit with ErrRateLimitExceeded (HTTP 429).
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(ClientIP(r)) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
