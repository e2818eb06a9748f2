package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"trafine/internal/domain"
	"trafine/pkg/e"
)

const (
	HeaderAPIKey = "X-API-Key"
	HeaderUserID = "X-User-Id"
)

type requesterKey struct{}

// APIKey rejects requests that do not present the admin key. An empty key
// locks the route entirely.
func APIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !validKey(key, r.Header.Get(HeaderAPIKey)) {
				writeError(w, http.StatusForbidden, e.KindForbidden, "invalid or missing API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Identity attaches the caller to the request context. The user id is
// taken as-is from the upstream auth service.
func Identity(adminKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := domain.Requester{
				UserID:  strings.TrimSpace(r.Header.Get(HeaderUserID)),
				IsAdmin: validKey(adminKey, r.Header.Get(HeaderAPIKey)),
			}
			next.ServeHTTP(w, r.WithContext(WithRequester(r.Context(), req)))
		})
	}
}

func WithRequester(ctx context.Context, req domain.Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, req)
}

// RequesterFrom returns the anonymous requester when none is attached.
func RequesterFrom(ctx context.Context) domain.Requester {
	req, _ := ctx.Value(requesterKey{}).(domain.Requester)
	return req
}

func validKey(want, got string) bool {
	if want == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
