package async

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by AwaitWithTimeout when the work has not finished.
var ErrTimeout = errors.New("async: await timed out")

// ExecFuture represents an asynchronous computation that only returns an error.
type ExecFuture struct {
	err  error
	done chan struct{}
}

// Await blocks until the function completes and returns its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// AwaitWithTimeout waits for completion up to timeout.
func (f *ExecFuture) AwaitWithTimeout(timeout time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// IsComplete reports completion without blocking.
func (f *ExecFuture) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Exec runs fn(ctx, param) in a new goroutine and returns a future for its
// error. A context that is already cancelled short-circuits without running
// the function.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}
