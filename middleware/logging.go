package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/oppwatch/gateway/core/logger"
)

// LoggingConfig configures the request logging middleware.
type LoggingConfig struct {
	// Skip bypasses logging for matching requests (health probes, metrics).
	Skip func(r *http.Request) bool

	// Logger receives request records (default: slog.Default()).
	Logger *slog.Logger

	// LogLevel for completed requests (default: slog.LevelInfo).
	LogLevel slog.Level

	// SlowRequestThreshold promotes requests slower than this to warning
	// level (default: 5s).
	SlowRequestThreshold time.Duration

	// Component name for structured logging (default: "http").
	Component string
}

// Logging logs each request with method, path, status, size, and duration.
func Logging(log *slog.Logger) Middleware {
	return LoggingWithConfig(LoggingConfig{Logger: log})
}

// LoggingWithConfig creates a request logging middleware with custom configuration.
func LoggingWithConfig(cfg LoggingConfig) Middleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.SlowRequestThreshold <= 0 {
		cfg.SlowRequestThreshold = 5 * time.Second
	}
	if cfg.Component == "" {
		cfg.Component = "http"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			attrs := []slog.Attr{
				logger.Component(cfg.Component),
				logger.Method(r.Method),
				logger.Path(r.URL.Path),
				logger.StatusCode(rec.status),
				slog.Int64("bytes", rec.bytes),
				logger.Elapsed(start),
			}
			if id, ok := GetRequestID(r.Context()); ok {
				attrs = append(attrs, logger.RequestID(id))
			}

			level := cfg.LogLevel
			switch {
			case rec.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case rec.status >= http.StatusBadRequest || elapsed > cfg.SlowRequestThreshold:
				level = slog.LevelWarn
			}

			cfg.Logger.LogAttrs(r.Context(), level, "request completed", attrs...)
		})
	}
}

// statusRecorder captures the response status and size for logging.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}
