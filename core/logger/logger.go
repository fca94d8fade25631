package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config controls logger construction from environment variables.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
}

// New builds a slog.Logger writing to stderr according to cfg.
// Unknown levels fall back to info, unknown formats to JSON.
func New(cfg Config, attrs ...slog.Attr) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}

	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}

	return slog.New(h)
}

// Noop returns a logger that discards everything. Useful as a default in
// constructors so components never need nil checks before logging.
func Noop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
