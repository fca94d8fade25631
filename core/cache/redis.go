package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store against a shared redis instance. The entry is
// stored as JSON under a redis-side TTL, so expiry needs no sweeping and the
// cache is shared by all gateway processes.
type RedisStore struct {
	client    redis.Cmdable
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisKeyPrefix overrides the default "cache:" key prefix.
func WithRedisKeyPrefix(prefix string) RedisStoreOption {
	return func(rs *RedisStore) {
		if prefix != "" {
			rs.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a redis-backed cache store.
func NewRedisStore(client redis.Cmdable, opts ...RedisStoreOption) *RedisStore {
	rs := &RedisStore{
		client:    client,
		keyPrefix: "cache:",
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// Get returns the entry for key if redis still holds it.
func (rs *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := rs.client.Get(ctx, rs.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt entry is a miss; the next Set overwrites it.
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores payload under key with a redis-side TTL.
func (rs *RedisStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}

	raw, err := json.Marshal(Entry{Payload: payload, StoredAt: time.Now(), TTL: ttl, Source: SourceLive})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := rs.client.Set(ctx, rs.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("set cache entry: %w", err)
	}
	return nil
}
