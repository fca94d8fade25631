// Package async provides a small future type for fire-and-forget work that
// only reports an error, such as the gateway's write-behind fallback updates.
//
// Exec starts the function immediately in its own goroutine; the returned
// future lets callers that care await completion (tests, shutdown paths)
// while the hot path simply drops it.
package async
