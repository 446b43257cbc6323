package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StepFunc executes one step and returns its output.
type StepFunc func(ctx context.Context, step *Step) (string, error)

// Executor runs a plan's steps locally in dependency order. Steps
// within one level run in parallel.
type Executor struct {
	planner  *Planner
	strategy FailureStrategy
	logger   zerolog.Logger
}

// NewExecutor creates a plan executor. The default failure strategy is
// abort.
func NewExecutor(planner *Planner, logger zerolog.Logger) *Executor {
	return &Executor{
		planner:  planner,
		strategy: FailAbort,
		logger:   logger.With().Str("component", "plan-executor").Logger(),
	}
}

// SetFailureStrategy chooses what a step failure does to the rest of
// the plan.
func (e *Executor) SetFailureStrategy(strategy FailureStrategy) {
	e.strategy = strategy
}

// Execute runs the plan with fn and returns the finished execution.
// The execution ends completed only if every step completed; a failed
// or skipped step makes it failed. With the continue strategy, steps
// that do not depend on a failed step still run.
func (e *Executor) Execute(ctx context.Context, plan *Plan, fn StepFunc) (*PlanExecution, error) {
	// The execution owns its own copy of the steps; the caller's plan
	// stays untouched.
	steps := make([]Step, len(plan.Steps))
	copy(steps, plan.Steps)
	exec := &PlanExecution{
		PlanID: plan.ID,
		Status: ExecPending,
		Steps:  steps,
	}

	levels, err := e.planner.ExecutionLevels(plan)
	if err != nil {
		exec.Status = ExecFailed
		exec.Error = err.Error()
		return exec, err
	}

	if err := exec.Transition(ExecRunning); err != nil {
		return exec, err
	}

	// IDs of steps that failed or were skipped; dependents of these
	// are skipped rather than run.
	var mu sync.Mutex
	unrunnable := make(map[string]bool)

	abort := false
	for _, level := range levels {
		if abort {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, id := range level {
			step := exec.findStep(id)
			if step == nil {
				exec.Status = ExecFailed
				exec.Error = fmt.Sprintf("step not found: %s", id)
				return exec, fmt.Errorf("step not found: %s", id)
			}

			mu.Lock()
			blockedBy := e.blockedDep(step, unrunnable)
			mu.Unlock()
			if blockedBy != "" {
				step.Status = StepStatusSkipped
				step.Result = &StepResult{
					Success:   false,
					Error:     fmt.Sprintf("skipped: dependency %s did not complete", blockedBy),
					Timestamp: time.Now(),
				}
				mu.Lock()
				unrunnable[step.ID] = true
				mu.Unlock()
				continue
			}

			g.Go(func() error {
				if err := e.runStep(gctx, step, fn); err != nil {
					mu.Lock()
					unrunnable[step.ID] = true
					mu.Unlock()
					if e.strategy == FailAbort {
						return err
					}
				}
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			abort = true
			exec.Error = err.Error()
		}
		if ctx.Err() != nil {
			abort = true
			if exec.Error == "" {
				exec.Error = ctx.Err().Error()
			}
		}
	}

	status := ExecCompleted
	for i := range exec.Steps {
		s := &exec.Steps[i]
		if abort && s.Status == StepStatusPending {
			s.Status = StepStatusSkipped
		}
		if s.Status != StepStatusCompleted {
			status = ExecFailed
		}
	}
	if err := exec.Transition(status); err != nil {
		return exec, err
	}

	e.logger.Debug().
		Str("plan_id", plan.ID).
		Str("status", string(exec.Status)).
		Msg("Plan execution finished")
	return exec, nil
}

func (e *Executor) runStep(ctx context.Context, step *Step, fn StepFunc) error {
	step.Status = StepStatusRunning
	start := time.Now()

	output, err := fn(ctx, step)
	if err != nil {
		step.Status = StepStatusFailed
		step.Result = &StepResult{
			Success:   false,
			Error:     err.Error(),
			Duration:  time.Since(start),
			Timestamp: time.Now(),
		}
		e.logger.Debug().Str("step", step.ID).Err(err).Msg("Step failed")
		return fmt.Errorf("step %s failed: %w", step.ID, err)
	}

	step.Status = StepStatusCompleted
	step.Result = &StepResult{
		Success:   true,
		Output:    output,
		Duration:  time.Since(start),
		Timestamp: time.Now(),
	}
	return nil
}

// blockedDep must be called with mu held when goroutines of the same
// level may be writing unrunnable.
func (e *Executor) blockedDep(step *Step, unrunnable map[string]bool) string {
	for _, dep := range step.Dependencies {
		if unrunnable[dep] {
			return dep
		}
	}
	return ""
}

func (e *PlanExecution) findStep(id string) *Step {
	for i := range e.Steps {
		if e.Steps[i].ID == id {
			return &e.Steps[i]
		}
	}
	return nil
}
