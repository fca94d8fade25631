// Package middleware provides HTTP middleware for the gateway's public
// surface: request ID propagation, structured request logging, and inbound
// per-client rate limiting.
//
// Middleware compose outermost-first:
//
//	handler := middleware.Chain(mux,
//		middleware.RequestID(),
//		middleware.Logging(log),
//		middleware.RateLimit(limiter),
//	)
package middleware
