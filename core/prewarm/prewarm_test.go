package prewarm_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppwatch/gateway/core/fallback"
	"github.com/oppwatch/gateway/core/gateway"
	"github.com/oppwatch/gateway/core/prewarm"
)

type recordingFetcher struct {
	mu      sync.Mutex
	fetched []string
	err     error
}

func (f *recordingFetcher) Fetch(_ context.Context, q gateway.Query) (*gateway.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, q.Path+"?"+q.Params.Encode())
	if f.err != nil {
		return nil, f.err
	}
	return &gateway.Result{Source: gateway.SourceLive, Payload: []byte(`{"results":[]}`)}, nil
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func TestParseShapes(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		shapes, err := prewarm.ParseShapes([]string{
			"/search?naics=721110&days=30",
			"/search?q=construction",
		})
		require.NoError(t, err)
		require.Len(t, shapes, 2)
		assert.Equal(t, "/search", shapes[0].Path)
		assert.Equal(t, "721110", shapes[0].Params.Get("naics"))
		assert.Equal(t, 30, shapes[0].WindowDays())
	})

	t.Run("missing path", func(t *testing.T) {
		t.Parallel()
		_, err := prewarm.ParseShapes([]string{"?days=30"})
		assert.Error(t, err)
	})
}

func TestNew_RejectsBadShapes(t *testing.T) {
	t.Parallel()

	_, err := prewarm.New(&recordingFetcher{}, prewarm.Config{Shapes: []string{"?bad"}})
	assert.Error(t, err)
}

func TestRefresher_RunsFirstCycleImmediately(t *testing.T) {
	t.Parallel()

	f := &recordingFetcher{}
	r, err := prewarm.New(f, prewarm.Config{
		Shapes:   []string{"/search?naics=721110&days=30", "/detail?id=n-1"},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	require.Eventually(t, func() bool { return f.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRefresher_ContinuesPastFailures(t *testing.T) {
	t.Parallel()

	f := &recordingFetcher{err: errors.New("upstream down")}
	r, err := prewarm.New(f, prewarm.Config{
		Shapes:   []string{"/search?naics=1", "/search?naics=2", "/search?naics=3"},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx) //nolint:errcheck

	assert.Eventually(t, func() bool { return f.count() == 3 }, time.Second, 5*time.Millisecond,
		"one failing shape must not stop the cycle")
}

func TestRefresher_StartWithoutShapes(t *testing.T) {
	t.Parallel()

	r, err := prewarm.New(&recordingFetcher{}, prewarm.Config{})
	require.NoError(t, err)
	assert.ErrorIs(t, r.Start(context.Background()), prewarm.ErrNoShapes)
}

func TestRefresher_WritesFallbackRecords(t *testing.T) {
	t.Parallel()

	f := &recordingFetcher{}
	fb := fallback.NewMemoryStore()
	r, err := prewarm.New(f, prewarm.Config{
		Shapes:   []string{"/search?naics=721110&days=30"},
		Interval: time.Hour,
	}, prewarm.WithFallbackStore(fb))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Start(ctx) //nolint:errcheck

	key := gateway.Query{Path: "/search", Params: url.Values{"naics": {"721110"}, "days": {"30"}}}.Key()
	require.Eventually(t, func() bool {
		_, found, _ := fb.Get(context.Background(), key)
		return found
	}, time.Second, 5*time.Millisecond)
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	f := &recordingFetcher{}
	r, err := prewarm.New(f, prewarm.Config{
		Shapes:   []string{"/search?naics=721110"},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx)() }()

	require.Eventually(t, func() bool { return f.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("refresher did not stop after cancellation")
	}
}
