package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oppwatch/gateway/core/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("debug level enabled", func(t *testing.T) {
		t.Parallel()
		log := logger.New(logger.Config{Level: "debug", Format: "text"})
		assert.True(t, log.Enabled(t.Context(), slog.LevelDebug))
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		t.Parallel()
		log := logger.New(logger.Config{Level: "loud", Format: "json"})
		assert.False(t, log.Enabled(t.Context(), slog.LevelDebug))
		assert.True(t, log.Enabled(t.Context(), slog.LevelInfo))
	})
}

func TestNoop(t *testing.T) {
	t.Parallel()

	log := logger.Noop()
	assert.NotPanics(t, func() {
		log.Info("discarded", slog.String("key", "value"))
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	t.Run("error attr", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.Error(nil))

		attr := logger.Error(errors.New("boom"))
		assert.Equal(t, "error", attr.Key)
	})

	t.Run("empty values collapse to empty attrs", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.Attr{}, logger.RequestID(""))
		assert.Equal(t, slog.Attr{}, logger.CacheKey(""))
		assert.Equal(t, slog.Attr{}, logger.Key("anything", nil))
	})

	t.Run("typed attrs", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, slog.String("component", "gateway"), logger.Component("gateway"))
		assert.Equal(t, slog.Int("status_code", 502), logger.StatusCode(502))
		assert.Equal(t, slog.Duration("duration", time.Second), logger.Duration(time.Second))
		assert.Equal(t, slog.String("breaker_state", "OPEN"), logger.BreakerState("OPEN"))
	})
}
