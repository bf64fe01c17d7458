package jwt

import (
	"context"
	"net/http"
	"strings"

	"punkspace/internal/pkg/errs"
	"punkspace/internal/pkg/logx"
	"punkspace/internal/pkg/resp"
)

type contextKey string

const (
	// ContextAuthPayloadKey stores the parsed *Payload in the request context.
	ContextAuthPayloadKey contextKey = "auth_payload"

	// ContextRawTokenKey stores the raw token string the payload was parsed from.
	ContextRawTokenKey contextKey = "auth_raw_token"
)

// RevocationChecker reports whether a token was revoked by logout.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, token string) bool
}

// Resolver turns request credentials into an identity.
type Resolver struct {
	SecretKey  string
	CookieName string
	Revoked    RevocationChecker
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func (res *Resolver) TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if c, err := r.Cookie(res.CookieName); err == nil {
		return c.Value
	}

	return ""
}

// Resolve validates tokenString and checks it against the revocation list.
func (res *Resolver) Resolve(ctx context.Context, tokenString string) (*Payload, error) {
	payload, err := ParseToken(tokenString, res.SecretKey)
	if err != nil {
		return nil, err
	}

	if res.Revoked != nil && res.Revoked.IsRevoked(ctx, tokenString) {
		return nil, errRevoked
	}

	return payload, nil
}

// Active reports whether tokenString still resolves to an identity.
func (res *Resolver) Active(ctx context.Context, tokenString string) bool {
	_, err := res.Resolve(ctx, tokenString)
	return err == nil
}

// IdentityExtractorMiddleware injects the caller's Payload into the context when a valid
// token is present. It never rejects; anonymous callers simply have no payload.
func (res *Resolver) IdentityExtractorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := res.TokenFromRequest(r)
		if tokenString == "" {
			next.ServeHTTP(w, r)
			return
		}

		payload, err := res.Resolve(r.Context(), tokenString)
		if err != nil {
			logx.Debug("Invalid, expired or revoked token, treating as anonymous", "error", err.Error())
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)
		ctx = context.WithValue(ctx, ContextRawTokenKey, tokenString)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireIdentity rejects anonymous requests with ErrUnauthorized.
// It must run after IdentityExtractorMiddleware.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPayloadFromContext(r) == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPayloadFromContext returns the authenticated Payload, or nil for anonymous requests.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}
	return payload
}

// GetRawTokenFromContext returns the token the current identity was parsed from.
func GetRawTokenFromContext(r *http.Request) string {
	token, _ := r.Context().Value(ContextRawTokenKey).(string)
	return token
}
