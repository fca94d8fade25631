package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oppwatch/gateway/core/logger"
)

// Config defines token bucket parameters.
type Config struct {
	Capacity   float64 `env:"RATE_LIMIT_CAPACITY" envDefault:"10"`
	RefillRate float64 `env:"RATE_LIMIT_REFILL_RATE" envDefault:"1"` // tokens per second
}

// Validate reports whether the configuration is usable.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive, got %v", ErrInvalidConfig, c.Capacity)
	}
	if c.RefillRate <= 0 {
		return fmt.Errorf("%w: refill rate must be positive, got %v", ErrInvalidConfig, c.RefillRate)
	}
	return nil
}

// Decision is the outcome of a single atomic take against a store.
type Decision struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

// Store performs the atomic refill-and-consume step for a bucket key.
type Store interface {
	Take(ctx context.Context, key string, cost float64, cfg Config) (Decision, error)
}

// Result is the limiter's answer to an admission request.
type Result struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
	// Degraded marks decisions made while the backing store was unreachable.
	// Such decisions did not consume a token and carry no meaningful
	// Remaining value.
	Degraded bool
}

// Bucket is a token bucket rate limiter over a pluggable store.
type Bucket struct {
	store      Store
	cfg        Config
	failClosed bool
	log        *slog.Logger
}

// BucketOption configures a Bucket.
type BucketOption func(*Bucket)

// WithLogger sets the logger for degradation signals.
func WithLogger(log *slog.Logger) BucketOption {
	return func(b *Bucket) {
		if log != nil {
			b.log = log
		}
	}
}

// WithFailClosed makes the limiter deny calls when the store is unreachable
// instead of the default fail-open behavior.
func WithFailClosed() BucketOption {
	return func(b *Bucket) {
		b.failClosed = true
	}
}

// NewBucket creates a limiter backed by the given store.
func NewBucket(store Store, cfg Config, opts ...BucketOption) (*Bucket, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &Bucket{
		store: store,
		cfg:   cfg,
		log:   logger.Noop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Allow attempts to consume a single token for key.
func (b *Bucket) Allow(ctx context.Context, key string) (*Result, error) {
	return b.AllowN(ctx, key, 1)
}

// AllowN attempts to consume n tokens for key.
//
// A store failure does not surface as an error in the default fail-open
// mode: the call is admitted with Degraded set and a warning is logged.
// This trades quota strictness for availability during store outages.
func (b *Bucket) AllowN(ctx context.Context, key string, n float64) (*Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenCount, n)
	}

	d, err := b.store.Take(ctx, key, n, b.cfg)
	if err != nil {
		if b.failClosed {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		b.log.WarnContext(ctx, "rate limit store unreachable, failing open",
			logger.Component("ratelimit"),
			logger.Key("key", key),
			logger.Error(err))
		return &Result{Allowed: true, Degraded: true}, nil
	}

	return &Result{
		Allowed:    d.Allowed,
		Remaining:  d.Remaining,
		RetryAfter: d.RetryAfter,
	}, nil
}

// Config returns the bucket parameters the limiter enforces.
func (b *Bucket) Config() Config {
	return b.cfg
}
