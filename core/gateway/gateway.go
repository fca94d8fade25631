package gateway

import (
	"context"
	"log/slog"

	"github.com/oppwatch/gateway/core/breaker"
	"github.com/oppwatch/gateway/core/cache"
	"github.com/oppwatch/gateway/core/coalesce"
	"github.com/oppwatch/gateway/core/fallback"
	"github.com/oppwatch/gateway/core/logger"
	"github.com/oppwatch/gateway/core/ratelimit"
	"github.com/oppwatch/gateway/core/upstream"
	"github.com/oppwatch/gateway/pkg/async"
)

// defaultUpstreamKey identifies the single upstream quota bucket when no
// override is configured.
const defaultUpstreamKey = "upstream:listings"

// Gateway composes the cache, breaker, coalescer, limiter, and fallback
// store around the upstream call path. Construct one per upstream at process
// start and share it across all handlers.
type Gateway struct {
	client  upstream.Caller
	cache   cache.Store
	ttl     cache.TTLPolicy
	limiter *ratelimit.Bucket
	breaker *breaker.Breaker
	flight  coalesce.Group
	fb      fallback.Store

	upstreamKey string
	log         *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the logger for degradation and write-behind signals.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gateway) {
		if log != nil {
			g.log = log
		}
	}
}

// WithUpstreamKey overrides the quota bucket identity.
func WithUpstreamKey(key string) Option {
	return func(g *Gateway) {
		if key != "" {
			g.upstreamKey = key
		}
	}
}

// New creates a Gateway. All collaborators are required.
func New(
	client upstream.Caller,
	cacheStore cache.Store,
	ttl cache.TTLPolicy,
	limiter *ratelimit.Bucket,
	brk *breaker.Breaker,
	fb fallback.Store,
	opts ...Option,
) (*Gateway, error) {
	if client == nil || cacheStore == nil || limiter == nil || brk == nil || fb == nil {
		return nil, ErrInvalidDeps
	}

	g := &Gateway{
		client:      client,
		cache:       cacheStore,
		ttl:         ttl,
		limiter:     limiter,
		breaker:     brk,
		fb:          fb,
		upstreamKey: defaultUpstreamKey,
		log:         logger.Noop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Fetch resolves a query through the resilient call path. It always returns
// either a provenance-tagged result or a classified error; callers never see
// an untagged empty payload.
func (g *Gateway) Fetch(ctx context.Context, q Query) (*Result, error) {
	key := q.Key()

	entry, hit, err := g.cache.Get(ctx, key)
	if err != nil {
		// A broken cache degrades to the upstream path rather than failing.
		g.log.WarnContext(ctx, "cache lookup failed",
			logger.Component("gateway"), logger.CacheKey(key), logger.Error(err))
	}
	if hit {
		return &Result{
			Payload:       entry.Payload,
			Source:        SourceCache,
			CacheStatus:   CacheHit,
			RateRemaining: -1,
			BreakerState:  g.breaker.State(),
		}, nil
	}

	if !g.breaker.Before() {
		return g.fromFallback(ctx, key)
	}

	// The leader's upstream call runs on a context detached from any single
	// caller: followers may still depend on it after this caller cancels.
	leaderCtx := context.WithoutCancel(ctx)
	v, _, err := g.flight.Do(ctx, key, func() (any, error) {
		return g.callUpstream(leaderCtx, q, key)
	})
	if err != nil {
		return nil, err
	}

	out := v.(*flightOutcome)
	return &Result{
		Payload:       out.payload,
		Source:        SourceLive,
		CacheStatus:   CacheMiss,
		RateRemaining: out.remaining,
		BreakerState:  g.breaker.State(),
	}, nil
}

// BreakerSnapshot exposes the breaker's counters for observability endpoints.
func (g *Gateway) BreakerSnapshot() breaker.Snapshot {
	return g.breaker.Snapshot()
}

// flightOutcome is the leader's result shared with every follower.
type flightOutcome struct {
	payload   []byte
	remaining float64
}

func (g *Gateway) callUpstream(ctx context.Context, q Query, key string) (*flightOutcome, error) {
	admit, err := g.limiter.Allow(ctx, g.upstreamKey)
	if err != nil {
		// Only reachable in fail-closed mode.
		return nil, err
	}
	if !admit.Allowed {
		return nil, &RateLimitError{RetryAfter: admit.RetryAfter, Remaining: admit.Remaining}
	}
	if admit.Degraded {
		g.log.WarnContext(ctx, "admitting upstream call without quota accounting",
			logger.Component("gateway"), logger.CacheKey(key))
	}

	payload, err := g.client.Get(ctx, q.Path, q.Params)
	if err != nil {
		g.breaker.After(breakerOutcome(err))
		return nil, err
	}

	g.breaker.After(breaker.OutcomeSuccess)

	ttl := g.ttl.ForWindow(q.WindowDays())
	if err := g.cache.Set(ctx, key, payload, ttl); err != nil {
		g.log.WarnContext(ctx, "cache write failed",
			logger.Component("gateway"), logger.CacheKey(key), logger.Error(err))
	}

	// Write-behind to the fallback store; never blocks the response path.
	async.Exec(ctx, payload, func(ctx context.Context, p []byte) error {
		if err := g.fb.Put(ctx, key, p); err != nil {
			g.log.WarnContext(ctx, "fallback write failed",
				logger.Component("gateway"), logger.CacheKey(key), logger.Error(err))
			return err
		}
		return nil
	})

	return &flightOutcome{payload: payload, remaining: admit.Remaining}, nil
}

func (g *Gateway) fromFallback(ctx context.Context, key string) (*Result, error) {
	rec, found, err := g.fb.Get(ctx, key)
	if err != nil {
		g.log.ErrorContext(ctx, "fallback lookup failed",
			logger.Component("gateway"), logger.CacheKey(key), logger.Error(err))
		return nil, ErrUnavailable
	}
	if !found {
		return nil, ErrUnavailable
	}

	return &Result{
		Payload:       rec.Payload,
		Source:        SourceFallback,
		CacheStatus:   CacheDB,
		RateRemaining: -1,
		BreakerState:  g.breaker.State(),
		RefreshedAt:   rec.RefreshedAt,
	}, nil
}

// breakerOutcome maps a classified upstream error to its breaker input.
// Only transient failures reflect upstream health; auth errors, upstream
// quota signals, and local parse failures must not move the state machine.
func breakerOutcome(err error) breaker.Outcome {
	if upstream.IsTransient(err) {
		return breaker.OutcomeFailure
	}
	return breaker.OutcomeIgnore
}
