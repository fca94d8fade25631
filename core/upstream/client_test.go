package upstream_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppwatch/gateway/core/upstream"
)

func newTestClient(t *testing.T, baseURL string) *upstream.Client {
	t.Helper()
	client, err := upstream.New(upstream.Config{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		ConnectTimeout: time.Second,
		RequestTimeout: 2 * time.Second,
		MaxRetries:     2,
		RetryInterval:  time.Millisecond,
	})
	require.NoError(t, err)
	return client
}

func TestNew_InvalidBaseURL(t *testing.T) {
	t.Parallel()

	_, err := upstream.New(upstream.Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns the payload and sends the api key", func(t *testing.T) {
		t.Parallel()
		var gotKey atomic.Value
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotKey.Store(r.Header.Get("X-Api-Key"))
			w.Write([]byte(`{"results":[{"id":"a1"}]}`))
		}))
		defer srv.Close()

		payload, err := newTestClient(t, srv.URL).Get(ctx, "/search", url.Values{"naics": {"721110"}})
		require.NoError(t, err)
		assert.JSONEq(t, `{"results":[{"id":"a1"}]}`, string(payload))
		assert.Equal(t, "test-key", gotKey.Load())
	})

	t.Run("auth failures are classified and never retried", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		assert.True(t, upstream.IsAuth(err))
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("upstream rate limit carries the retry-after hint", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		assert.True(t, upstream.IsRateLimited(err))
		assert.Equal(t, 7*time.Second, upstream.RetryAfterOf(err))
		assert.Equal(t, int64(1), calls.Load(), "quota exhaustion must not be retried")
	})

	t.Run("server errors are retried up to the budget", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		assert.True(t, upstream.IsTransient(err))
		assert.Equal(t, int64(3), calls.Load(), "initial attempt plus two retries")
	})

	t.Run("recovers when a retry succeeds", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		payload, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":true}`, string(payload))
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("malformed body is a local error, not retried", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte("<html>definitely not json</html>"))
		}))
		defer srv.Close()

		_, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		assert.True(t, upstream.IsLocal(err))
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("connection failure is transient", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close() // nothing listens anymore

		_, err := newTestClient(t, srv.URL).Get(ctx, "/search", nil)
		assert.True(t, upstream.IsTransient(err))
	})
}
