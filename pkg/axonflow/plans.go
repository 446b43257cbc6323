package axonflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getaxonflow/axonflow-go/internal/tracing"
	"github.com/getaxonflow/axonflow-go/internal/transport"
)

// PlansPath is the agent endpoint for multi-agent plans. Plan
// operations chain several LLM calls on the agent side and therefore
// run under the larger MAPTimeout budget.
const PlansPath = "/api/v1/plans"

type generatePlanRequest struct {
	Query  string `json:"query"`
	Domain string `json:"domain,omitempty"`
}

// GeneratePlan asks the agent to decompose a query into a multi-agent
// plan.
func (c *Client) GeneratePlan(ctx context.Context, query, domain string) (*PlanResponse, error) {
	if query == "" {
		return nil, NewValidationError("query must not be empty")
	}

	var plan PlanResponse
	if err := c.doPlanCall(ctx, http.MethodPost, PlansPath, generatePlanRequest{Query: query, Domain: domain}, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ExecutePlan executes a previously generated plan and blocks until the
// agent reports a terminal status or the MAP timeout expires. Plan
// execution is not idempotent, so it is never retried; a transient
// failure surfaces immediately and the caller checks the plan's status
// before re-issuing.
func (c *Client) ExecutePlan(ctx context.Context, planID string) (*PlanExecutionResponse, error) {
	if planID == "" {
		return nil, NewValidationError("plan_id must not be empty")
	}
	ctx = tracing.WithPlanID(ctx, planID)

	var result PlanExecutionResponse
	path := fmt.Sprintf("%s/%s/execute", PlansPath, planID)
	if err := c.planCall(ctx, http.MethodPost, path, nil, &result); err != nil {
		c.metrics.PlanExecutions.WithLabelValues("failed").Inc()
		c.audit.RecordPlanExecution(ctx, c.config.ClientID, "failure")
		return nil, err
	}
	c.metrics.PlanExecutions.WithLabelValues(result.Status).Inc()
	c.audit.RecordPlanExecution(ctx, c.config.ClientID, result.Status)
	return &result, nil
}

// GetPlanStatus polls the status of an executing plan.
func (c *Client) GetPlanStatus(ctx context.Context, planID string) (*PlanExecutionResponse, error) {
	if planID == "" {
		return nil, NewValidationError("plan_id must not be empty")
	}

	var result PlanExecutionResponse
	path := fmt.Sprintf("%s/%s/status", PlansPath, planID)
	if err := c.doPlanCall(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) doPlanCall(ctx context.Context, method, path string, body, out any) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		return c.planCall(ctx, method, path, body, out)
	})
}

// planCall is a single plan endpoint attempt.
func (c *Client) planCall(ctx context.Context, method, path string, body, out any) error {
	r, err := c.agent.Do(ctx, method, path, body, c.config.MAPTimeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return NewTimeoutError("plan operation timed out", err)
		}
		return NewNetworkError("plan operation failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return ErrorFromStatus(r.Status, r.Body)
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return NewAPIError(fmt.Sprintf("malformed plan response: %v", err), r.Status)
	}
	return nil
}
