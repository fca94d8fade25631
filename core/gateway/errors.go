package gateway

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable is returned when the breaker is open and no fallback record
// exists for the query shape. Equivalent to HTTP 503.
var ErrUnavailable = errors.New("upstream temporarily unavailable")

// ErrInvalidDeps is returned by New when a required collaborator is missing.
var ErrInvalidDeps = errors.New("invalid gateway dependencies")

// RateLimitError is a local admission denial by the gateway's own token
// bucket. It never reached the upstream.
type RateLimitError struct {
	RetryAfter time.Duration
	Remaining  float64
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %.2fs", e.RetryAfter.Seconds())
}

// AsRateLimitError extracts a *RateLimitError from err.
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}
