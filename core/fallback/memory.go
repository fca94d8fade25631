package fallback

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store in process memory. Useful for development and
// tests; production deployments should use PGStore so records survive
// restarts.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryStoreOption {
	return func(ms *MemoryStore) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStore creates an in-memory fallback store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Get returns the record for shapeKey if one exists.
func (ms *MemoryStore) Get(_ context.Context, shapeKey string) (Record, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	rec, ok := ms.records[shapeKey]
	return rec, ok, nil
}

// Put stores payload under shapeKey, replacing any previous record.
func (ms *MemoryStore) Put(_ context.Context, shapeKey string, payload []byte) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.records[shapeKey] = Record{
		ShapeKey:    shapeKey,
		Payload:     payload,
		RefreshedAt: ms.now(),
	}
	return nil
}
