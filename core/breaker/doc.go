// Package breaker implements a three-state circuit breaker guarding the
// upstream call path.
//
// The breaker starts CLOSED. Consecutive transient failures at or above the
// failure threshold open it; while OPEN every call is short-circuited until
// the cooldown elapses. The first call after the cooldown moves the breaker
// to HALF_OPEN, a trial period in which consecutive successes at the success
// threshold close it again and any single failure reopens it with a fresh
// cooldown. The OPEN to HALF_OPEN transition is evaluated lazily on the next
// call rather than by a timer.
//
// Only transient outcomes (timeouts, connection errors, 5xx-equivalents) may
// be reported as failures. Credential problems must be reported as
// OutcomeIgnore: opening the breaker for a configuration fault would mask an
// actionable error behind a health signal.
package breaker
