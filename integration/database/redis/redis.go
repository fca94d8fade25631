package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration loaded from the environment.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

// Connect creates a Redis client and verifies connectivity with a ping,
// retrying transient failures before giving up.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	client := redis.NewClient(opts)

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

	var pingErr error
	for i := 0; i < attempts; i++ {
		if pingErr = client.Ping(connectCtx).Err(); pingErr == nil {
			return client, nil
		}
		select {
		case <-connectCtx.Done():
			_ = client.Close()
			return nil, errors.Join(ErrRedisNotReady, connectCtx.Err())
		case <-time.After(interval):
		}
	}

	_ = client.Close()
	return nil, errors.Join(ErrRedisNotReady, pingErr)
}

// Healthcheck returns a readiness probe function for the client.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
