// Package executor provides the SDK's execution core: a cooperatively
// scheduled task engine with bounded concurrency, plus a blocking
// bridge that is safe to call from inside the engine's own tasks.
//
// The core serializes logical call starts (one slot by default); a
// task's network and backoff waits are context waits, so cancellation
// and deadlines interleave without blocking the process. The bridge
// detects when its caller is itself running on the core and hands the
// work to an isolated overflow pool instead, avoiding the starvation
// deadlock that blocking on the core's own capacity would cause.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned when submitting to a closed core.
var ErrClosed = errors.New("executor: core is closed")

// Task is a unit of work executed on the core.
type Task func(ctx context.Context) (any, error)

// Result is a completed task's outcome.
type Result struct {
	Value any
	Err   error
}

// Config configures a Core.
type Config struct {
	// Slots bounds how many tasks run on the core concurrently.
	// Default: 1 (strictly serialized call starts).
	Slots int64
	// OverflowWorkers sizes the isolated pool that hosts reentrant
	// blocking calls. Default: 4.
	OverflowWorkers int
	Logger          zerolog.Logger
}

// Core runs tasks with bounded concurrency and owns the overflow pool.
// One core per client; tasks share nothing beyond what the caller
// explicitly shares.
type Core struct {
	sem      *semaphore.Weighted
	overflow chan *overflowTask
	quit     chan struct{}
	logger   zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

type overflowTask struct {
	ctx  context.Context
	fn   Task
	done chan Result
}

type coreKey struct{}
type overflowKey struct{}

// NewCore creates and starts a core.
func NewCore(cfg Config) *Core {
	if cfg.Slots <= 0 {
		cfg.Slots = 1
	}
	if cfg.OverflowWorkers <= 0 {
		cfg.OverflowWorkers = 4
	}

	c := &Core{
		sem:      semaphore.NewWeighted(cfg.Slots),
		overflow: make(chan *overflowTask),
		quit:     make(chan struct{}),
		logger:   cfg.Logger.With().Str("component", "executor").Logger(),
	}

	for i := 0; i < cfg.OverflowWorkers; i++ {
		c.wg.Add(1)
		go c.overflowWorker()
	}
	return c
}

// Submit schedules fn on the core and returns a channel that yields
// exactly one Result. The task context is tagged so nested blocking
// calls can detect they are already on the core.
func (c *Core) Submit(ctx context.Context, name string, fn Task) <-chan Result {
	done := make(chan Result, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		done <- Result{Err: ErrClosed}
		return done
	}
	c.wg.Add(1)
	c.mu.Unlock()

	id, _ := gonanoid.New()
	go func() {
		defer c.wg.Done()

		if err := c.sem.Acquire(ctx, 1); err != nil {
			done <- Result{Err: err}
			return
		}
		defer c.sem.Release(1)

		c.logger.Debug().Str("task", name).Str("task_id", id).Msg("Task started")
		value, err := fn(context.WithValue(ctx, coreKey{}, true))
		if err != nil {
			c.logger.Debug().Str("task", name).Str("task_id", id).Err(err).Msg("Task failed")
		} else {
			c.logger.Debug().Str("task", name).Str("task_id", id).Msg("Task complete")
		}
		done <- Result{Value: value, Err: err}
	}()

	return done
}

// submitOverflow hands fn to the isolated pool. Overflow work is not
// on the core, but its context is marked so bridged calls nested
// inside it keep routing to the pool instead of blocking on core
// capacity an ancestor task may still hold. Nesting depth is bounded
// by the pool size.
func (c *Core) submitOverflow(ctx context.Context, fn Task) <-chan Result {
	done := make(chan Result, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		done <- Result{Err: ErrClosed}
		return done
	}
	c.mu.Unlock()

	tctx := context.WithValue(ctx, coreKey{}, false)
	tctx = context.WithValue(tctx, overflowKey{}, true)
	t := &overflowTask{
		ctx:  tctx,
		fn:   fn,
		done: done,
	}
	select {
	case c.overflow <- t:
	case <-c.quit:
		done <- Result{Err: ErrClosed}
	case <-ctx.Done():
		done <- Result{Err: ctx.Err()}
	}
	return done
}

func (c *Core) overflowWorker() {
	defer c.wg.Done()
	for {
		select {
		case t := <-c.overflow:
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.done <- Result{Err: fmt.Errorf("executor: task panicked: %v", r)}
					}
				}()
				value, err := t.fn(t.ctx)
				t.done <- Result{Value: value, Err: err}
			}()
		case <-c.quit:
			return
		}
	}
}

// OnCore reports whether ctx belongs to a task currently running on
// the core.
func OnCore(ctx context.Context) bool {
	on, ok := ctx.Value(coreKey{}).(bool)
	return ok && on
}

// inOverflow reports whether ctx belongs to a task running on the
// overflow pool.
func inOverflow(ctx context.Context) bool {
	on, ok := ctx.Value(overflowKey{}).(bool)
	return ok && on
}

// Close stops the core. Pending overflow submissions fail with
// ErrClosed; in-flight tasks run to completion.
func (c *Core) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.quit)
	c.wg.Wait()
}
