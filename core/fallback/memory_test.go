package fallback_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppwatch/gateway/core/fallback"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("miss on unknown shape", func(t *testing.T) {
		t.Parallel()
		store := fallback.NewMemoryStore()

		_, found, err := store.Get(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put then get", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		store := fallback.NewMemoryStore(fallback.WithClock(func() time.Time { return now }))

		require.NoError(t, store.Put(ctx, "shape-1", []byte(`{"results":[1]}`)))

		rec, found, err := store.Get(ctx, "shape-1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "shape-1", rec.ShapeKey)
		assert.Equal(t, []byte(`{"results":[1]}`), rec.Payload)
		assert.Equal(t, now, rec.RefreshedAt)
	})

	t.Run("put replaces the previous record", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		store := fallback.NewMemoryStore(fallback.WithClock(func() time.Time { return now }))

		require.NoError(t, store.Put(ctx, "shape-1", []byte("old")))
		now = now.Add(time.Hour)
		require.NoError(t, store.Put(ctx, "shape-1", []byte("new")))

		rec, found, err := store.Get(ctx, "shape-1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("new"), rec.Payload)
		assert.Equal(t, now, rec.RefreshedAt)
	})

	t.Run("records never expire", func(t *testing.T) {
		t.Parallel()
		now := time.Now()
		store := fallback.NewMemoryStore(fallback.WithClock(func() time.Time { return now }))

		require.NoError(t, store.Put(ctx, "shape-1", []byte("stale but gold")))
		now = now.Add(30 * 24 * time.Hour)

		_, found, err := store.Get(ctx, "shape-1")
		require.NoError(t, err)
		assert.True(t, found)
	})
}
