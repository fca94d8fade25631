// Package api exposes the gateway over HTTP.
//
// Two read endpoints front the upstream listings service:
//
//	GET /search?q=...&naics=...&days=...&limit=...
//	GET /detail?id=...
//
// Every successful response carries provenance headers so clients can tell
// a live payload from a cached or last-known-good one:
//
//	X-Cache: HIT | MISS | DB
//	X-Source: live | cache | fallback
//	X-Circuit-State: CLOSED | OPEN | HALF_OPEN
//	X-RateLimit-Remaining: tokens left in the upstream quota bucket
//	X-Refreshed-At: RFC 3339 timestamp, fallback responses only
//
// Errors use a JSON envelope with a machine-readable code:
//
//	{"code": "RATE_LIMITED", "message": "...", "details": {...}}
package api
