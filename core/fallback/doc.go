// Package fallback provides the durable last-known-good store consulted when
// the circuit breaker is open and the response cache has expired.
//
// Records are independent of cache TTLs: a fallback payload is served however
// old it is, tagged so callers can tell it apart from fresh data. Records are
// written opportunistically after every successful upstream response and by
// background refresh jobs; they are only read on the breaker-open path.
package fallback
