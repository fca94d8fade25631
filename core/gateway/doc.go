// Package gateway orchestrates the resilient call path between internal
// consumers and the upstream listings API.
//
// Fetch composes the response cache, circuit breaker, request coalescer,
// token bucket limiter, and durable fallback store around a single upstream
// call:
//
//	cache hit                  -> served from cache
//	breaker open               -> last-known-good fallback, or 503-equivalent
//	concurrent identical calls -> one leader, N-1 followers sharing its outcome
//	limiter denied             -> rate-limited failure with a wait hint
//	otherwise                  -> bounded upstream call; success feeds the
//	                              cache and, fire-and-forget, the fallback store
//
// Every result is tagged with its provenance (live, cache, fallback) and the
// breaker state at response time, so callers can always tell what freshness
// guarantee they received. Within one key at most one upstream call is in
// flight; across keys calls proceed independently, subject only to the
// shared token bucket.
package gateway
