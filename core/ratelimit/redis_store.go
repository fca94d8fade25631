package ratelimit

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

//go:embed token_bucket.lua
var tokenBucketScript string

// RedisStore implements Store against a shared redis instance. The bucket
// update runs as a single Lua script server-side, so the quota holds across
// all gateway processes without client-side locking.
type RedisStore struct {
	client    redis.Scripter
	script    *redis.Script
	keyPrefix string
	now       func() time.Time
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "ratelimit:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// WithRedisStoreClock overrides the time source. Intended for tests.
func WithRedisStoreClock(now func() time.Time) RedisStoreOption {
	return func(rs *RedisStore) {
		if now != nil {
			rs.now = now
		}
	}
}

// NewRedisStore creates a redis-backed bucket store. The script is loaded
// lazily on first use and re-sent automatically after a redis restart.
func NewRedisStore(client redis.Scripter, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client:    client,
		script:    redis.NewScript(tokenBucketScript),
		keyPrefix: "ratelimit:",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Take executes the bucket script for key.
func (rs *RedisStore) Take(ctx context.Context, key string, cost float64, cfg Config) (Decision, error) {
	now := float64(rs.now().UnixMicro()) / 1e6

	raw, err := rs.script.Run(ctx, rs.client, []string{rs.keyPrefix + key},
		cfg.Capacity, cfg.RefillRate, now, cost,
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("unexpected token bucket script reply: %v", raw)
	}

	allowed, _ := values[0].(int64)
	remaining := parseLuaFloat(values[1])
	retryAfter := parseLuaFloat(values[2])

	return Decision{
		Allowed:    allowed == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(retryAfter * float64(time.Second)),
	}, nil
}

// parseLuaFloat handles the number encodings redis Lua replies use:
// floats come back as strings to preserve precision, whole numbers as int64.
func parseLuaFloat(v any) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case int64:
		return float64(val)
	case float64:
		return val
	default:
		return 0
	}
}
