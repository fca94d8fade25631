package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDContextKey struct{}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	// Skip bypasses the middleware for matching requests.
	Skip func(r *http.Request) bool
	// Generator creates new request IDs (default: UUID v4).
	Generator func() string
	// UseExisting trusts an incoming X-Request-ID header instead of
	// generating a fresh ID.
	UseExisting bool
}

// RequestID assigns a unique identifier to each request for tracing. The ID
// is stored in the request context and echoed in the response headers.
func RequestID() Middleware {
	return RequestIDWithConfig(RequestIDConfig{})
}

// RequestIDWithConfig creates a request ID middleware with custom configuration.
func RequestIDWithConfig(cfg RequestIDConfig) Middleware {
	if cfg.Generator == nil {
		cfg.Generator = func() string { return uuid.New().String() }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			var id string
			if cfg.UseExisting {
				id = r.Header.Get(requestIDHeader)
			}
			if id == "" {
				id = cfg.Generator()
			}

			w.Header().Set(requestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID retrieves the request ID from the context.
// Returns false when no request ID middleware ran.
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDContextKey{}).(string)
	return id, ok
}
