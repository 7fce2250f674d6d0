package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/router"
)

type claimsKey struct{}

// TokenValidator turns a raw bearer token into claims of type C.
type TokenValidator[C any] interface {
	Validate(raw string) (C, error)
}

// Auth rejects requests without a valid bearer token and stores the claims in the request context.
func Auth[C any](v TokenValidator[C]) router.Middleware {
	return func(next http.Handler) http.Handler {
		return authMiddleware(next, v, true)
	}
}

// OptionalAuth stores the claims when a valid token is present and lets every request through.
func OptionalAuth[C any](v TokenValidator[C]) router.Middleware {
	return func(next http.Handler) http.Handler {
		return authMiddleware(next, v, false)
	}
}

func authMiddleware[C any](next http.Handler, v TokenValidator[C], required bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawToken := bearerToken(r)
		if rawToken == "" {
			if required {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		claims, err := v.Validate(rawToken)
		if err != nil {
			if required {
				authError("failed to validate token", w, r, err)
				return
			}
			slog.Debug("ignoring invalid token", "error", err, "url", r.URL.String())
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return raw
}

func authError(msg string, w http.ResponseWriter, r *http.Request, err error) {
	slog.Warn(msg,
		"error", err,
		"method", r.Method,
		"url", r.URL.String(),
		"remote_addr", r.RemoteAddr,
	)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// ClaimsFromContext returns the claims stored by Auth or OptionalAuth.
func ClaimsFromContext[C any](ctx context.Context) (C, bool) {
	c, ok := ctx.Value(claimsKey{}).(C)
	return c, ok
}
