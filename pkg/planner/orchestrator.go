package planner

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

// defaultPollInterval is how often a remote plan's status is polled.
const defaultPollInterval = 2 * time.Second

// Orchestrator drives remote plan runs end to end: generate, execute,
// poll to a terminal status. All remote calls run under the client's
// MAP timeout budget, which is larger than the single-call budget
// because a plan chains several LLM calls.
type Orchestrator struct {
	client       *axonflow.Client
	planner      *Planner
	pollInterval time.Duration
	logger       zerolog.Logger
}

// NewOrchestrator creates an orchestrator around an AxonFlow client.
func NewOrchestrator(client *axonflow.Client, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		client:       client,
		planner:      NewPlanner(),
		pollInterval: defaultPollInterval,
		logger:       logger.With().Str("component", "plan-orchestrator").Logger(),
	}
}

// SetPollInterval overrides the status polling interval.
func (o *Orchestrator) SetPollInterval(interval time.Duration) {
	if interval > 0 {
		o.pollInterval = interval
	}
}

// Run generates a plan for the query, executes it remotely, and polls
// until the agent reports a terminal status or ctx ends. The overall
// run is bounded by the client's MAP timeout.
func (o *Orchestrator) Run(ctx context.Context, query, domain string) (*PlanExecution, error) {
	ctx, cancel := context.WithTimeout(ctx, o.client.Config().MAPTimeout)
	defer cancel()

	resp, err := o.client.GeneratePlan(ctx, query, domain)
	if err != nil {
		return nil, err
	}

	plan, err := o.planner.FromResponse(resp)
	if err != nil {
		return nil, err
	}
	o.logger.Debug().
		Str("plan_id", plan.ID).
		Int("steps", len(plan.Steps)).
		Msg("Plan generated")

	exec := &PlanExecution{PlanID: plan.ID, Status: ExecPending, Steps: plan.Steps}
	if err := exec.Transition(ExecRunning); err != nil {
		return exec, err
	}

	result, err := o.client.ExecutePlan(ctx, plan.ID)
	if err != nil {
		exec.Error = err.Error()
		_ = exec.Transition(ExecFailed)
		return exec, err
	}

	for !isTerminal(result.Status) {
		select {
		case <-ctx.Done():
			exec.Error = ctx.Err().Error()
			_ = exec.Transition(ExecFailed)
			return exec, axonflow.NewTimeoutError("plan execution timed out", ctx.Err())
		case <-time.After(o.pollInterval):
		}

		result, err = o.client.GetPlanStatus(ctx, plan.ID)
		if err != nil {
			exec.Error = err.Error()
			_ = exec.Transition(ExecFailed)
			return exec, err
		}
	}

	o.applyStepResults(exec, result)
	if result.Status == string(ExecCompleted) {
		_ = exec.Transition(ExecCompleted)
	} else {
		exec.Error = result.Error
		_ = exec.Transition(ExecFailed)
	}
	return exec, nil
}

func isTerminal(status string) bool {
	return status == string(ExecCompleted) || status == string(ExecFailed)
}

// applyStepResults merges remote step outcomes into the local execution.
func (o *Orchestrator) applyStepResults(exec *PlanExecution, result *axonflow.PlanExecutionResponse) {
	for i := range exec.Steps {
		step := &exec.Steps[i]
		raw, ok := result.StepResults[step.ID]
		if !ok {
			continue
		}

		switch v := raw.(type) {
		case string:
			step.Status = StepStatusCompleted
			step.Result = &StepResult{Success: true, Output: v, Timestamp: time.Now()}
		case map[string]any:
			sr := &StepResult{Timestamp: time.Now()}
			if out, ok := v["output"].(string); ok {
				sr.Output = out
			}
			if errMsg, ok := v["error"].(string); ok && errMsg != "" {
				sr.Error = errMsg
				step.Status = StepStatusFailed
			} else {
				sr.Success = true
				step.Status = StepStatusCompleted
			}
			step.Result = sr
		}
	}
}
