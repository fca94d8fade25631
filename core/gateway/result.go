package gateway

import (
	"time"

	"github.com/oppwatch/gateway/core/breaker"
)

// Source tags where a payload came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

// CacheStatus is the cache-layer verdict for a request.
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
	// CacheDB marks a payload served from the durable fallback store while
	// the breaker was open.
	CacheDB CacheStatus = "DB"
)

// Result is the definite, provenance-tagged outcome of a Fetch.
type Result struct {
	Payload     []byte
	Source      Source
	CacheStatus CacheStatus

	// RateRemaining is the token count left in the upstream bucket after
	// this call. Negative when the request never consulted the limiter
	// (cache hits, fallback reads).
	RateRemaining float64

	// BreakerState is the circuit state observed at response time.
	BreakerState breaker.State

	// RefreshedAt is when the fallback record was last updated.
	// Zero unless Source is SourceFallback.
	RefreshedAt time.Time
}
