// Package pg provides PostgreSQL connection pool initialization and health
// checking built on pgx.
//
// Connect parses the DSN, establishes a pgxpool with retry, and verifies
// connectivity with a ping before returning the pool:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain-specific PostgreSQL errors for consistent error handling.
// Use errors.Is() to check error types.
var (
	ErrEmptyConnectionString = errors.New("empty postgres connection string")
	ErrFailedToParseConfig   = errors.New("failed to parse postgres connection string")
	ErrNotReady              = errors.New("postgres did not become ready within the given time period")
	ErrHealthcheckFailed     = errors.New("postgres healthcheck failed")
)

// Config holds PostgreSQL connection configuration loaded from the environment.
type Config struct {
	ConnectionString string        `env:"DATABASE_URL,required"`
	MaxConns         int32         `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	MinConns         int32         `env:"DATABASE_MIN_CONNS" envDefault:"0"`
	RetryAttempts    int           `env:"DATABASE_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"DATABASE_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout   time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a connection pool and verifies connectivity with a ping,
// retrying transient failures before giving up.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.ConnectionString == "" {
		return nil, ErrEmptyConnectionString
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, errors.Join(ErrNotReady, err)
	}

	var pingErr error
	for i := 0; i < attempts; i++ {
		if pingErr = pool.Ping(connectCtx); pingErr == nil {
			return pool, nil
		}
		select {
		case <-connectCtx.Done():
			pool.Close()
			return nil, errors.Join(ErrNotReady, connectCtx.Err())
		case <-time.After(interval):
		}
	}

	pool.Close()
	return nil, errors.Join(ErrNotReady, pingErr)
}

// Healthcheck returns a readiness probe function for the pool.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
