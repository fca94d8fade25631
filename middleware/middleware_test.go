package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oppwatch/gateway/core/ratelimit"
	"github.com/oppwatch/gateway/middleware"
)

func TestChain_Order(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := middleware.Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	t.Run("generates and propagates", func(t *testing.T) {
		t.Parallel()

		var seen string
		h := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := middleware.GetRequestID(r.Context())
			require.True(t, ok)
			seen = id
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})

	t.Run("honors existing header when configured", func(t *testing.T) {
		t.Parallel()

		h := middleware.RequestIDWithConfig(middleware.RequestIDConfig{UseExisting: true})(
			http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-trace-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "upstream-trace-42", rec.Header().Get("X-Request-ID"))
	})

	t.Run("ignores incoming header by default", func(t *testing.T) {
		t.Parallel()

		h := middleware.RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "spoofed")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.NotEqual(t, "spoofed", rec.Header().Get("X-Request-ID"))
	})
}

func TestLogging(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/brew", nil))

	out := buf.String()
	assert.Contains(t, out, `"status_code":418`)
	assert.Contains(t, out, `"path":"/brew"`)
	assert.Contains(t, out, `"method":"GET"`)
	assert.Contains(t, out, `"WARN"`, "4xx responses log at warning level")
}

func TestLogging_Skip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.LoggingWithConfig(middleware.LoggingConfig{
		Logger: log,
		Skip:   func(r *http.Request) bool { return r.URL.Path == "/health/live" },
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, buf.String())
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	newLimiter := func(t *testing.T, capacity, rate float64) *ratelimit.Bucket {
		t.Helper()
		b, err := ratelimit.NewBucket(ratelimit.NewMemoryStore(), ratelimit.Config{
			Capacity:   capacity,
			RefillRate: rate,
		})
		require.NoError(t, err)
		return b
	}

	t.Run("allows under the limit", func(t *testing.T) {
		t.Parallel()

		h := middleware.RateLimit(newLimiter(t, 5, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		}
	})

	t.Run("denies over the limit with headers", func(t *testing.T) {
		t.Parallel()

		h := middleware.RateLimit(newLimiter(t, 1, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		assert.JSONEq(t, `{"code":"RATE_LIMITED","message":"too many requests"}`, rec.Body.String())
	})

	t.Run("separate clients have separate buckets", func(t *testing.T) {
		t.Parallel()

		h := middleware.RateLimit(newLimiter(t, 1, 1))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		reqA := httptest.NewRequest(http.MethodGet, "/", nil)
		reqA.RemoteAddr = "10.0.0.1:1234"
		reqB := httptest.NewRequest(http.MethodGet, "/", nil)
		reqB.RemoteAddr = "10.0.0.2:1234"

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, reqA)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, reqB)
		assert.Equal(t, http.StatusOK, rec.Code, "a different client must not share the bucket")
	})

	t.Run("uses forwarded client address", func(t *testing.T) {
		t.Parallel()

		var key string
		h := middleware.RateLimitWithConfig(newLimiter(t, 10, 1), middleware.RateLimitConfig{
			KeyFunc: func(r *http.Request) string {
				key = r.Header.Get("X-Forwarded-For")
				return key
			},
		})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.9")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "203.0.113.9", key)
	})
}
