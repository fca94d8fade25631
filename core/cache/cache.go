package cache

import (
	"context"
	"time"
)

// SourceLive tags entries written from a successful upstream response,
// the only path that populates the cache.
const SourceLive = "live"

// Entry is a cached upstream response.
type Entry struct {
	Payload  []byte        `json:"payload"`
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
	// Source records the provenance of the stored payload.
	Source string `json:"source"`
}

// Fresh reports whether the entry is still eligible to be served.
func (e Entry) Fresh(now time.Time) bool {
	return now.Before(e.StoredAt.Add(e.TTL))
}

// Store holds time-bounded response entries keyed by normalized query.
// Implementations must treat entries as immutable: refreshes overwrite the
// whole entry, never parts of it.
type Store interface {
	// Get returns the entry for key if present and fresh.
	Get(ctx context.Context, key string) (Entry, bool, error)
	// Set stores payload under key for ttl.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}
