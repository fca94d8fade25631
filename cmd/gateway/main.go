// Command gateway runs the resilient listings gateway: an HTTP service that
// fronts a rate-limited upstream search API with caching, request
// coalescing, circuit breaking, and a durable last-known-good fallback.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oppwatch/gateway/api"
	"github.com/oppwatch/gateway/core/breaker"
	"github.com/oppwatch/gateway/core/cache"
	"github.com/oppwatch/gateway/core/config"
	"github.com/oppwatch/gateway/core/fallback"
	"github.com/oppwatch/gateway/core/gateway"
	"github.com/oppwatch/gateway/core/health"
	"github.com/oppwatch/gateway/core/logger"
	"github.com/oppwatch/gateway/core/prewarm"
	"github.com/oppwatch/gateway/core/ratelimit"
	"github.com/oppwatch/gateway/core/server"
	"github.com/oppwatch/gateway/core/upstream"
	"github.com/oppwatch/gateway/integration/database/pg"
	"github.com/oppwatch/gateway/integration/database/redis"
	"github.com/oppwatch/gateway/middleware"
)

// appConfig wires the optional backends and tuning knobs that do not belong
// to any single package. Redis and Postgres are both optional: without them
// the gateway runs on in-process state, which is fine for a single replica.
type appConfig struct {
	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	BreakerFailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD" envDefault:"5"`
	BreakerSuccessThreshold int           `env:"BREAKER_SUCCESS_THRESHOLD" envDefault:"2"`
	BreakerCooldown         time.Duration `env:"BREAKER_COOLDOWN" envDefault:"60s"`

	// Inbound per-client limiting on the public surface.
	ClientRateCapacity float64 `env:"CLIENT_RATE_LIMIT_CAPACITY" envDefault:"30"`
	ClientRateRefill   float64 `env:"CLIENT_RATE_LIMIT_REFILL_RATE" envDefault:"10"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("gateway exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		appCfg      appConfig
		logCfg      logger.Config
		serverCfg   server.Config
		upstreamCfg upstream.Config
		rateCfg     ratelimit.Config
		ttlCfg      cache.TTLPolicy
		prewarmCfg  prewarm.Config
	)
	config.MustLoad(&appCfg)
	config.MustLoad(&logCfg)
	config.MustLoad(&serverCfg)
	config.MustLoad(&upstreamCfg)
	config.MustLoad(&rateCfg)
	config.MustLoad(&ttlCfg)
	config.MustLoad(&prewarmCfg)

	log := logger.New(logCfg, slog.String("service", "gateway"))

	g, ctx := errgroup.WithContext(ctx)

	// Storage backends: redis-backed quota and cache when REDIS_URL is set,
	// in-process otherwise.
	var (
		rateStore  ratelimit.Store
		cacheStore cache.Store
		readiness  []func(context.Context) error
	)
	if appCfg.RedisURL != "" {
		client, err := redis.Connect(ctx, redis.Config{
			ConnectionURL: appCfg.RedisURL,
			RetryAttempts: 3,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		rateStore = ratelimit.NewRedisStore(client)
		cacheStore = cache.NewRedisStore(client)
		readiness = append(readiness, redis.Healthcheck(client))
		log.Info("using redis-backed cache and quota store")
	} else {
		memRate := ratelimit.NewMemoryStore(ratelimit.WithMemoryStoreLogger(log))
		memCache := cache.NewMemoryStore(cache.WithLogger(log))
		g.Go(memRate.Run(ctx))
		g.Go(memCache.Run(ctx))
		rateStore = memRate
		cacheStore = memCache
		log.Info("using in-process cache and quota store")
	}

	// Fallback store: durable in Postgres when DATABASE_URL is set.
	var fbStore fallback.Store
	if appCfg.DatabaseURL != "" {
		if err := fallback.Migrate(ctx, appCfg.DatabaseURL); err != nil {
			return err
		}
		pool, err := pg.Connect(ctx, pg.Config{
			ConnectionString: appCfg.DatabaseURL,
			RetryAttempts:    3,
			RetryInterval:    2 * time.Second,
		})
		if err != nil {
			return err
		}
		defer pool.Close()

		fbStore = fallback.NewPGStore(pool)
		readiness = append(readiness, pg.Healthcheck(pool))
		log.Info("using postgres-backed fallback store")
	} else {
		fbStore = fallback.NewMemoryStore()
		log.Info("using in-process fallback store")
	}

	client, err := upstream.New(upstreamCfg, upstream.WithLogger(log))
	if err != nil {
		return err
	}

	limiter, err := ratelimit.NewBucket(rateStore, rateCfg, ratelimit.WithLogger(log))
	if err != nil {
		return err
	}

	brk := breaker.New(
		breaker.WithFailureThreshold(appCfg.BreakerFailureThreshold),
		breaker.WithSuccessThreshold(appCfg.BreakerSuccessThreshold),
		breaker.WithCooldown(appCfg.BreakerCooldown),
		breaker.WithLogger(log),
	)

	gw, err := gateway.New(client, cacheStore, ttlCfg, limiter, brk, fbStore,
		gateway.WithLogger(log))
	if err != nil {
		return err
	}

	// Inbound per-client limiter is always in-process: it protects this
	// replica's own capacity, not the shared upstream quota.
	clientLimitStore := ratelimit.NewMemoryStore(ratelimit.WithMemoryStoreLogger(log))
	g.Go(clientLimitStore.Run(ctx))
	clientLimiter, err := ratelimit.NewBucket(clientLimitStore, ratelimit.Config{
		Capacity:   appCfg.ClientRateCapacity,
		RefillRate: appCfg.ClientRateRefill,
	}, ratelimit.WithLogger(log))
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	api.New(gw, api.WithLogger(log)).Register(mux)
	mux.Handle("GET /health/live", health.Liveness())
	mux.Handle("GET /health/ready", health.Readiness(log, readiness...))

	isProbe := func(r *http.Request) bool {
		return r.URL.Path == "/health/live" || r.URL.Path == "/health/ready"
	}
	handler := middleware.Chain(mux,
		middleware.RequestID(),
		middleware.LoggingWithConfig(middleware.LoggingConfig{Logger: log, Skip: isProbe}),
		middleware.RateLimitWithConfig(clientLimiter, middleware.RateLimitConfig{Skip: isProbe}),
	)

	srv, err := server.NewFromConfig(serverCfg, server.WithLogger(log))
	if err != nil {
		return err
	}
	g.Go(srv.Run(ctx, handler))

	if len(prewarmCfg.Shapes) > 0 {
		refresher, err := prewarm.New(gw, prewarmCfg,
			prewarm.WithLogger(log), prewarm.WithFallbackStore(fbStore))
		if err != nil {
			return err
		}
		g.Go(refresher.Run(ctx))
	}

	log.Info("gateway started", slog.String("addr", serverCfg.Addr))
	return g.Wait()
}
