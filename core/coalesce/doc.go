// Package coalesce deduplicates concurrent identical in-flight calls.
//
// For each key, exactly one caller (the leader) executes the function; every
// other concurrent caller for the same key (a follower) blocks until the
// leader resolves and then receives the identical outcome. N concurrent
// identical requests collapse into exactly one upstream call.
//
// A follower whose own context is cancelled simply stops waiting; the
// leader's call is unaffected and still completes for the remaining waiters.
// Coalescing scope is per-process.
package coalesce
