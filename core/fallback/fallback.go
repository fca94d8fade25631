package fallback

import (
	"context"
	"time"
)

// Record is the last-known-good payload for one query shape.
type Record struct {
	ShapeKey    string
	Payload     []byte
	RefreshedAt time.Time
}

// Store persists last-known-good payloads per query shape.
type Store interface {
	// Get returns the record for shapeKey if one exists.
	Get(ctx context.Context, shapeKey string) (Record, bool, error)
	// Put stores payload under shapeKey, replacing any previous record.
	Put(ctx context.Context, shapeKey string, payload []byte) error
}
