// Package redis provides Redis client initialization and health checking.
//
// Connect validates the connection URL, dials with retry, and verifies
// connectivity with a ping before returning the client. Both redis:// and
// rediss:// (TLS) URL schemes are supported.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// Healthcheck returns a probe function suitable for readiness endpoints:
//
//	mux.Handle("GET /health/ready", health.Readiness(log, redis.Healthcheck(client)))
package redis
