// Package ratelimit provides token bucket rate limiting with pluggable
// storage backends.
//
// A bucket holds up to Capacity tokens and refills continuously at
// RefillRate tokens per second. Each admitted call consumes one token;
// when the bucket is empty the decision carries a retry-after hint of
// (1 - tokens) / RefillRate seconds.
//
// The check-and-decrement step is atomic in every backend: the memory store
// performs refill and consumption under a single lock section, and the redis
// store executes an embedded Lua script server-side so concurrent processes
// never over-admit through read-then-write races.
//
// Basic usage:
//
//	store := ratelimit.NewMemoryStore()
//	limiter, err := ratelimit.NewBucket(store, ratelimit.Config{
//		Capacity:   3,
//		RefillRate: 1, // tokens per second
//	})
//
//	result, err := limiter.Allow(ctx, "upstream:listings")
//	if !result.Allowed {
//		// back off for result.RetryAfter
//	}
//
// When the backing store is unreachable the limiter fails open by default:
// the call is admitted with Degraded set so callers can log the condition.
// WithFailClosed reverses this policy.
package ratelimit
