// Package cache provides the gateway's response cache: stable key derivation
// from normalized queries, a window-scaled TTL policy, and time-bounded entry
// stores backed by process memory or redis.
//
// Two semantically identical queries with differently ordered or cased
// parameters map to the same key. Entries are immutable once written and are
// overwritten wholesale on refresh; expiry is passive.
package cache
