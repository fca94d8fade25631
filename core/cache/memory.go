package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oppwatch/gateway/core/logger"
)

// MemoryStore implements Store with an in-process map. Expired entries are
// dropped lazily on Get and swept by the optional cleanup loop.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry

	cleanupInterval time.Duration
	now             func() time.Time
	log             *slog.Logger

	cancel context.CancelFunc
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often expired entries are swept.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// WithLogger sets the logger for the cleanup loop.
func WithLogger(log *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if log != nil {
			ms.log = log
		}
	}
}

// NewMemoryStore creates an in-memory cache store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		entries:         make(map[string]Entry),
		cleanupInterval: 10 * time.Minute,
		now:             time.Now,
		log:             logger.Noop(),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Get returns the entry for key if present and fresh.
func (ms *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	ms.mu.RLock()
	entry, ok := ms.entries[key]
	ms.mu.RUnlock()

	if !ok {
		return Entry{}, false, nil
	}
	if !entry.Fresh(ms.now()) {
		ms.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, ok := ms.entries[key]; ok && !cur.Fresh(ms.now()) {
			delete(ms.entries, key)
		}
		ms.mu.Unlock()
		return Entry{}, false, nil
	}
	return entry, true, nil
}

// Set stores payload under key for ttl, overwriting any previous entry.
func (ms *MemoryStore) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", ttl)
	}
	ms.mu.Lock()
	ms.entries[key] = Entry{Payload: payload, StoredAt: ms.now(), TTL: ttl, Source: SourceLive}
	ms.mu.Unlock()
	return nil
}

// Len reports the number of entries, including not-yet-swept expired ones.
func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.entries)
}

// Start runs the expired-entry sweep loop until the context is cancelled.
func (ms *MemoryStore) Start(ctx context.Context) error {
	if ms.cleanupInterval <= 0 {
		return fmt.Errorf("cleanup interval must be > 0, got %v", ms.cleanupInterval)
	}

	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("cache cleanup already started")
	}
	ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.log.InfoContext(ctx, "cache cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			ms.sweep()
		}
	}
}

// Stop cancels the sweep loop.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.cancel == nil {
		return fmt.Errorf("cache cleanup not started")
	}
	ms.cancel()
	ms.cancel = nil
	return nil
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (ms *MemoryStore) Run(ctx context.Context) func() error {
	return func() error {
		err := ms.Start(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}
}

func (ms *MemoryStore) sweep() {
	now := ms.now()
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for key, entry := range ms.entries {
		if !entry.Fresh(now) {
			delete(ms.entries, key)
		}
	}
}
