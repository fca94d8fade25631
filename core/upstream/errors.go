package upstream

import (
	"errors"
	"fmt"
	"time"
)

// Class buckets an upstream call failure.
type Class int

const (
	// ClassTransient covers timeouts, connection failures, and 5xx responses.
	ClassTransient Class = iota
	// ClassAuth covers credential and permission failures (401/403).
	ClassAuth
	// ClassRateLimited covers quota exhaustion signaled by the upstream (429).
	ClassRateLimited
	// ClassLocal covers malformed responses the gateway could not use.
	ClassLocal
)

// String returns a stable lower-case class name.
func (c Class) String() string {
	switch c {
	case ClassAuth:
		return "auth"
	case ClassRateLimited:
		return "rate_limited"
	case ClassLocal:
		return "local"
	default:
		return "transient"
	}
}

// Error is a classified upstream call failure.
type Error struct {
	Class      Class
	StatusCode int           // zero when no HTTP response was received
	RetryAfter time.Duration // set only for ClassRateLimited
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream %s error: %v", e.Class, e.Err)
	}
	return fmt.Sprintf("upstream %s error (status %d)", e.Class, e.StatusCode)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassOf extracts the failure class from err.
func ClassOf(err error) (Class, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Class, true
	}
	return 0, false
}

// RetryAfterOf extracts the upstream's retry-after hint, if any.
func RetryAfterOf(err error) time.Duration {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}

// IsAuth reports whether err is a credential or permission failure.
func IsAuth(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassAuth
}

// IsRateLimited reports whether the upstream signaled quota exhaustion.
func IsRateLimited(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassRateLimited
}

// IsTransient reports whether err reflects upstream health.
func IsTransient(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassTransient
}

// IsLocal reports whether err reflects a local parsing problem.
func IsLocal(err error) bool {
	c, ok := ClassOf(err)
	return ok && c == ClassLocal
}
