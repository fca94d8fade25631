// Package upstream wraps the third-party listings search API behind a single
// GET-style call with bounded timeouts and a strict outcome taxonomy.
//
// Every call resolves into exactly one of four classes:
//
//   - Auth: invalid credentials or permissions. Never retried, never fed
//     into the circuit breaker.
//   - RateLimited: the upstream itself signals quota exhaustion. The
//     Retry-After hint is surfaced and honored, never retried inside.
//   - Transient: timeouts, connection failures, 5xx responses. Retried a
//     bounded number of times with exponential backoff, then reported; the
//     only class that counts against the breaker.
//   - Local: a malformed response body. Reflects a bug, not upstream health.
package upstream
