package prewarm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/oppwatch/gateway/core/fallback"
	"github.com/oppwatch/gateway/core/gateway"
	"github.com/oppwatch/gateway/core/logger"
)

// ErrNoShapes is returned by Start when no query shapes are configured.
var ErrNoShapes = errors.New("no prewarm shapes configured")

// ErrAlreadyStarted is returned by Start when the refresher is running.
var ErrAlreadyStarted = errors.New("prewarm refresher already started")

// Config holds refresher configuration loaded from the environment.
type Config struct {
	// Shapes is a comma-separated list of relative URLs to keep warm.
	Shapes []string `env:"PREWARM_SHAPES" envSeparator:","`

	// Interval between refresh cycles.
	Interval time.Duration `env:"PREWARM_INTERVAL" envDefault:"10m"`
}

// Fetcher is the subset of the gateway the refresher needs.
type Fetcher interface {
	Fetch(ctx context.Context, q gateway.Query) (*gateway.Result, error)
}

// Refresher drives periodic fetches for the configured query shapes.
type Refresher struct {
	mu       sync.Mutex
	fetcher  Fetcher
	fb       fallback.Store
	shapes   []gateway.Query
	interval time.Duration
	log      *slog.Logger
	cancel   context.CancelFunc
}

// Option configures a Refresher.
type Option func(*Refresher)

// WithLogger sets the logger for refresh outcomes.
func WithLogger(log *slog.Logger) Option {
	return func(r *Refresher) {
		if log != nil {
			r.log = log
		}
	}
}

// WithFallbackStore makes the refresher push each warmed payload into the
// durable fallback store, keeping last-known-good records current even when
// a shape is served from cache.
func WithFallbackStore(fb fallback.Store) Option {
	return func(r *Refresher) {
		r.fb = fb
	}
}

// New creates a Refresher from configuration.
func New(fetcher Fetcher, cfg Config, opts ...Option) (*Refresher, error) {
	shapes, err := ParseShapes(cfg.Shapes)
	if err != nil {
		return nil, err
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	r := &Refresher{
		fetcher:  fetcher,
		shapes:   shapes,
		interval: interval,
		log:      logger.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// ParseShapes converts relative URLs into gateway queries.
func ParseShapes(raw []string) ([]gateway.Query, error) {
	shapes := make([]gateway.Query, 0, len(raw))
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil || u.Path == "" {
			return nil, fmt.Errorf("invalid prewarm shape %q", s)
		}
		shapes = append(shapes, gateway.Query{Path: u.Path, Params: u.Query()})
	}
	return shapes, nil
}

// Start blocks and refreshes all shapes every interval until the context is
// canceled. The first cycle runs immediately.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	if len(r.shapes) == 0 {
		r.mu.Unlock()
		return ErrNoShapes
	}
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.log.InfoContext(ctx, "prewarm refresher started",
		logger.Component("prewarm"),
		slog.Int("shape_count", len(r.shapes)),
		slog.Duration("interval", r.interval))

	r.refreshAll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered(r.interval)):
			r.refreshAll(ctx)
		}
	}
}

// jittered spreads cycles by up to ±10% so multiple replicas do not refresh
// in lockstep.
func jittered(d time.Duration) time.Duration {
	return d + time.Duration((rand.Float64()*2-1)*0.1*float64(d))
}

// Stop cancels a running refresher. Safe to call when not started.
func (r *Refresher) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run provides errgroup compatibility for coordinated lifecycle management.
func (r *Refresher) Run(ctx context.Context) func() error {
	return func() error {
		errCh := make(chan error, 1)
		go func() {
			errCh <- r.Start(ctx)
		}()

		select {
		case <-ctx.Done():
			r.Stop()
			<-errCh
			return nil
		case err := <-errCh:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	for _, q := range r.shapes {
		if ctx.Err() != nil {
			return
		}

		start := time.Now()
		res, err := r.fetcher.Fetch(ctx, q)
		if err != nil {
			r.log.WarnContext(ctx, "prewarm fetch failed",
				logger.Component("prewarm"), logger.CacheKey(q.Key()), logger.Error(err))
			continue
		}

		// Cache hits skip the gateway's write-behind, so push the payload
		// into the fallback store here to keep the record fresh.
		if r.fb != nil && res.Source != gateway.SourceFallback {
			if err := r.fb.Put(ctx, q.Key(), res.Payload); err != nil {
				r.log.WarnContext(ctx, "prewarm fallback write failed",
					logger.Component("prewarm"), logger.CacheKey(q.Key()), logger.Error(err))
			}
		}

		r.log.DebugContext(ctx, "prewarm fetch completed",
			logger.Component("prewarm"),
			logger.CacheKey(q.Key()),
			logger.Source(string(res.Source)),
			logger.Elapsed(start))
	}
}
