package executor

import "context"

// Bridge runs a task and blocks until it completes, from anywhere.
//
// From plain caller goroutines it submits to the core and waits. From
// inside a core task it must not wait on the core's own capacity, so
// it routes the work to the overflow pool instead. Either way the
// caller gets the task's value and error unchanged.
type Bridge struct {
	core *Core
}

// NewBridge returns a bridge bound to core.
func NewBridge(core *Core) *Bridge {
	return &Bridge{core: core}
}

// Run executes fn to completion and returns its result. Safe to call
// from inside another task running on the same core, and from inside
// overflow tasks spawned that way; nested bridged work stays on the
// overflow pool so it never waits on core capacity an ancestor still
// holds.
func (b *Bridge) Run(ctx context.Context, name string, fn Task) (any, error) {
	var done <-chan Result
	if OnCore(ctx) || inOverflow(ctx) {
		done = b.core.submitOverflow(ctx, fn)
	} else {
		done = b.core.Submit(ctx, name, fn)
	}

	select {
	case r := <-done:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
