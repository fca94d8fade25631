package gateway

import (
	"net/url"
	"strconv"

	"github.com/oppwatch/gateway/core/cache"
)

// Query identifies one upstream read: an endpoint path plus its parameters.
type Query struct {
	Path   string
	Params url.Values
}

// Key returns the normalized cache key for the query. The same key is used
// as the fallback store's query shape key.
func (q Query) Key() string {
	return cache.Key(q.Path, q.Params)
}

// WindowDays returns the query's time window in days, or zero when absent.
// The cache TTL scales with this value.
func (q Query) WindowDays() int {
	days, err := strconv.Atoi(q.Params.Get("days"))
	if err != nil || days < 0 {
		return 0
	}
	return days
}
