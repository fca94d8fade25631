package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oppwatch/gateway/core/logger"
)

// memBucket holds the lazily-refilled state of one token bucket.
type memBucket struct {
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time // used by cleanup to identify stale buckets
}

// MemoryStore implements Store using in-process storage. Suitable for a
// single instance; use RedisStore when the quota must be shared.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*memBucket

	cleanupInterval time.Duration
	staleAfter      time.Duration
	now             func() time.Time
	log             *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool

	bucketsRemoved atomic.Int64
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often stale buckets are removed.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.cleanupInterval = interval
	}
}

// WithStaleAfter sets the idle duration after which a bucket is removed.
func WithStaleAfter(d time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if d > 0 {
			ms.staleAfter = d
		}
	}
}

// WithMemoryStoreLogger sets the logger for internal operations.
func WithMemoryStoreLogger(log *slog.Logger) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if log != nil {
			ms.log = log
		}
	}
}

// WithMemoryStoreClock overrides the time source. Intended for tests.
func WithMemoryStoreClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory store.
// Call Start (or wire Run into an errgroup) to begin background cleanup.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:         make(map[string]*memBucket),
		cleanupInterval: 5 * time.Minute,
		staleAfter:      time.Hour,
		now:             time.Now,
		log:             logger.Noop(),
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Take refills the bucket from elapsed time and consumes cost tokens if
// available. Refill, check, and decrement happen under one lock section so
// concurrent callers can never jointly over-admit.
func (ms *MemoryStore) Take(_ context.Context, key string, cost float64, cfg Config) (Decision, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	b, ok := ms.buckets[key]
	if !ok {
		b = &memBucket{tokens: cfg.Capacity, lastRefill: now}
		ms.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastRefill).Seconds(); elapsed > 0 {
		b.tokens = min(cfg.Capacity, b.tokens+elapsed*cfg.RefillRate)
		b.lastRefill = now
	}
	b.lastAccess = now

	if b.tokens >= cost {
		b.tokens -= cost
		return Decision{Allowed: true, Remaining: b.tokens}, nil
	}

	wait := (cost - b.tokens) / cfg.RefillRate
	return Decision{
		Remaining:  b.tokens,
		RetryAfter: time.Duration(wait * float64(time.Second)),
	}, nil
}

// Reset removes the bucket for key, restoring it to full capacity on next use.
func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.buckets, key)
	return nil
}

// Len reports the current number of tracked buckets.
func (ms *MemoryStore) Len() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.buckets)
}

// Start runs the background cleanup loop until the context is cancelled.
func (ms *MemoryStore) Start(ctx context.Context) error {
	ms.mu.Lock()
	if ms.cancel != nil {
		ms.mu.Unlock()
		return fmt.Errorf("memory store already started")
	}
	if ms.cleanupInterval <= 0 {
		ms.mu.Unlock()
		return fmt.Errorf("cleanup interval must be > 0, got %v", ms.cleanupInterval)
	}
	ms.ctx, ms.cancel = context.WithCancel(ctx)
	ms.mu.Unlock()

	ms.running.Store(true)
	defer ms.running.Store(false)

	ms.log.InfoContext(ms.ctx, "rate limit bucket cleanup started",
		slog.Duration("cleanup_interval", ms.cleanupInterval))

	ticker := time.NewTicker(ms.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ms.ctx.Done():
			return ms.ctx.Err()
		case <-ticker.C:
			ms.removeStale()
		}
	}
}

// Stop cancels the background cleanup loop.
func (ms *MemoryStore) Stop() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.cancel == nil {
		return fmt.Errorf("memory store not started")
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

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now()
	removed := 0
	for key, b := range ms.buckets {
		if now.Sub(b.lastAccess) > ms.staleAfter {
			delete(ms.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		ms.bucketsRemoved.Add(int64(removed))
		ms.log.Debug("removed stale rate limit buckets", slog.Int("removed", removed))
	}
}

// Healthcheck reports whether the store is operational.
func (ms *MemoryStore) Healthcheck(context.Context) error {
	if ms.cleanupInterval > 0 && !ms.running.Load() {
		ms.mu.Lock()
		started := ms.cancel != nil
		ms.mu.Unlock()
		if started {
			return fmt.Errorf("cleanup loop configured but not running")
		}
	}
	return nil
}
