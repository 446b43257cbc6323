// Package planner orchestrates multi-agent plans: validation of plan
// documents, dependency-ordered local step execution, and remote plan
// runs against the AxonFlow agent under the MAP timeout budget.
package planner

import (
	"fmt"
	"time"
)

// Plan is a validated multi-agent execution plan.
type Plan struct {
	ID         string         `json:"id"`
	Query      string         `json:"query,omitempty"`
	Domain     string         `json:"domain,omitempty"`
	Steps      []Step         `json:"steps"`
	Parallel   bool           `json:"parallel"`
	Complexity int            `json:"complexity,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Step is a single unit of work in a plan.
type Step struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type,omitempty"`
	Description  string         `json:"description,omitempty"`
	Agent        string         `json:"agent,omitempty"`
	Parameters   map[string]any `json:"parameters,omitempty"`
	Dependencies []string       `json:"depends_on,omitempty"`
	Status       StepStatus     `json:"status"`
	Result       *StepResult    `json:"result,omitempty"`
}

// StepStatus is the execution status of a step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepResult is the outcome of one executed step.
type StepResult struct {
	Success   bool          `json:"success"`
	Output    string        `json:"output,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// FailureStrategy decides what a step failure does to the rest of the
// plan. The planner never infers this; callers choose.
type FailureStrategy string

const (
	// FailAbort stops the plan at the first failed step.
	FailAbort FailureStrategy = "abort"
	// FailContinue records the failure, skips steps that depend on the
	// failed one, and runs everything else.
	FailContinue FailureStrategy = "continue"
)

// ExecStatus is the lifecycle status of a plan execution.
type ExecStatus string

const (
	ExecPending   ExecStatus = "pending"
	ExecRunning   ExecStatus = "running"
	ExecCompleted ExecStatus = "completed"
	ExecFailed    ExecStatus = "failed"
)

// terminal reports whether the status admits no further transitions.
func (s ExecStatus) terminal() bool {
	return s == ExecCompleted || s == ExecFailed
}

// PlanExecution tracks one run of a plan. Status transitions are
// monotonic: pending → running → completed|failed, and terminal states
// are final.
type PlanExecution struct {
	PlanID      string     `json:"plan_id"`
	Status      ExecStatus `json:"status"`
	Steps       []Step     `json:"steps"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at,omitempty"`
	CompletedAt time.Time  `json:"completed_at,omitempty"`
}

// Transition moves the execution to a new status. A transition out of
// a terminal state, or backwards, is rejected.
func (e *PlanExecution) Transition(to ExecStatus) error {
	if e.Status.terminal() {
		return fmt.Errorf("plan %s is already %s", e.PlanID, e.Status)
	}
	if e.Status == ExecRunning && to == ExecPending {
		return fmt.Errorf("plan %s cannot return to pending", e.PlanID)
	}

	e.Status = to
	switch to {
	case ExecRunning:
		e.StartedAt = time.Now()
	case ExecCompleted, ExecFailed:
		e.CompletedAt = time.Now()
	}
	return nil
}
