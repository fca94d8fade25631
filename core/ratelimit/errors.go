package ratelimit

import "errors"

// Package-level error definitions for rate limiter operations.
var (
	ErrInvalidConfig     = errors.New("invalid rate limit configuration")
	ErrInvalidTokenCount = errors.New("invalid token count")
	ErrStoreUnavailable  = errors.New("rate limit store unavailable")
)
