// Package health provides HTTP handlers for service health monitoring.
//
// Liveness reports that the process is running, with no dependency checks.
// Readiness runs the supplied dependency checks and returns 503 when any
// fails. Dependency checks use the func(context.Context) error signature:
//
//	mux.Handle("GET /health/live", health.Liveness())
//	mux.Handle("GET /health/ready", health.Readiness(log,
//		pg.Healthcheck(pool),
//		redis.Healthcheck(client),
//	))
package health
