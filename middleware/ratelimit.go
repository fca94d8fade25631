package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/oppwatch/gateway/core/ratelimit"
	"github.com/oppwatch/gateway/pkg/clientip"
)

// RateLimitConfig configures the inbound rate limiting middleware.
type RateLimitConfig struct {
	// Skip bypasses limiting for matching requests.
	Skip func(r *http.Request) bool

	// KeyFunc extracts the client identity to limit on. Defaults to
	// clientip.GetIP.
	KeyFunc func(r *http.Request) string
}

// RateLimit throttles inbound requests per client using the given bucket.
// Denied requests receive 429 with Retry-After and X-RateLimit-* headers.
func RateLimit(limiter *ratelimit.Bucket) Middleware {
	return RateLimitWithConfig(limiter, RateLimitConfig{})
}

// RateLimitWithConfig creates an inbound rate limiting middleware with custom
// configuration.
func RateLimitWithConfig(limiter *ratelimit.Bucket, cfg RateLimitConfig) Middleware {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientip.GetIP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Skip != nil && cfg.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), "client:"+cfg.KeyFunc(r))
			if err != nil {
				// Fail-closed limiter with an unreachable store.
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(math.Floor(res.Remaining))))
			if !res.Allowed {
				retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"code":    "RATE_LIMITED",
					"message": "too many requests",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
