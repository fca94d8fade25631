package coalesce

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Group coalesces concurrent calls per key. The zero value is ready to use.
type Group struct {
	sf singleflight.Group
}

// Do executes fn for key, collapsing concurrent callers into one execution.
// The shared return reports whether the result was also delivered to other
// callers. When ctx is cancelled while waiting, Do returns ctx.Err() and the
// in-flight execution continues for the benefit of other waiters.
func (g *Group) Do(ctx context.Context, key string, fn func() (any, error)) (v any, shared bool, err error) {
	ch := g.sf.DoChan(key, fn)
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops the in-flight registration for key so the next call starts a
// new execution instead of joining the current one.
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}
