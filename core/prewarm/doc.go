// Package prewarm periodically refreshes a configured set of query shapes
// through the gateway so the cache and fallback store stay warm for the
// queries that matter most. A refresh cycle walks the shapes sequentially;
// shapes that fail are logged and skipped, never retried within the cycle.
//
// Shapes are configured as a comma-separated list of relative URLs:
//
//	PREWARM_SHAPES="/search?naics=721110&days=30,/search?q=construction&days=7"
package prewarm
