package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/oppwatch/gateway/core/logger"
)

// Liveness indicates the service process is running. Always 200 "ALIVE".
func Liveness() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ALIVE"))
	})
}

// Readiness verifies all service dependencies are functioning.
// Returns "READY" when every check passes, 503 when any fails.
func Readiness(log *slog.Logger, checks ...func(context.Context) error) http.Handler {
	if log == nil {
		log = logger.Noop()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
				http.Error(w, "NOT READY", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("READY"))
	})
}

// NoContent returns HTTP 204 without body, for high-frequency probes.
func NoContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}
