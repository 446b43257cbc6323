package axonflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/getaxonflow/axonflow-go/internal/transport"
)

// ExecutionsPath is the orchestrator endpoint for the Execution Replay
// API. Unlike every other operation, replay calls go to the
// orchestrator, not the agent.
const ExecutionsPath = "/api/v1/executions"

// ListExecutions returns a page of recorded workflow executions.
func (c *Client) ListExecutions(ctx context.Context, opts ListExecutionsOptions) (*ListExecutionsResponse, error) {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.WorkflowID != "" {
		q.Set("workflow_id", opts.WorkflowID)
	}
	if opts.StartTime != nil {
		q.Set("start_time", opts.StartTime.Format(time.RFC3339))
	}
	if opts.EndTime != nil {
		q.Set("end_time", opts.EndTime.Format(time.RFC3339))
	}

	path := ExecutionsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result ListExecutionsResponse
	if err := c.doReplayCall(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetExecution returns one execution with its recorded steps.
func (c *Client) GetExecution(ctx context.Context, requestID string) (*ExecutionDetail, error) {
	if requestID == "" {
		return nil, NewValidationError("request_id must not be empty")
	}

	var result ExecutionDetail
	if err := c.doReplayCall(ctx, fmt.Sprintf("%s/%s", ExecutionsPath, url.PathEscape(requestID)), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetExecutionSteps returns the recorded step snapshots of an execution.
func (c *Client) GetExecutionSteps(ctx context.Context, requestID string) ([]ExecutionSnapshot, error) {
	if requestID == "" {
		return nil, NewValidationError("request_id must not be empty")
	}

	var result struct {
		Steps []ExecutionSnapshot `json:"steps"`
	}
	if err := c.doReplayCall(ctx, fmt.Sprintf("%s/%s/steps", ExecutionsPath, url.PathEscape(requestID)), &result); err != nil {
		return nil, err
	}
	return result.Steps, nil
}

// GetExecutionTimeline returns the condensed timeline of an execution.
func (c *Client) GetExecutionTimeline(ctx context.Context, requestID string) ([]TimelineEntry, error) {
	if requestID == "" {
		return nil, NewValidationError("request_id must not be empty")
	}

	var result struct {
		Timeline []TimelineEntry `json:"timeline"`
	}
	if err := c.doReplayCall(ctx, fmt.Sprintf("%s/%s/timeline", ExecutionsPath, url.PathEscape(requestID)), &result); err != nil {
		return nil, err
	}
	return result.Timeline, nil
}

// ExportExecution exports an execution in the requested format and
// returns the raw export payload.
func (c *Client) ExportExecution(ctx context.Context, requestID string, opts ExecutionExportOptions) ([]byte, error) {
	if requestID == "" {
		return nil, NewValidationError("request_id must not be empty")
	}

	q := url.Values{}
	format := opts.Format
	if format == "" {
		format = "json"
	}
	q.Set("format", format)
	if opts.IncludeInput {
		q.Set("include_input", "true")
	}
	if opts.IncludeOutput {
		q.Set("include_output", "true")
	}
	if opts.IncludePolicies {
		q.Set("include_policies", "true")
	}

	path := fmt.Sprintf("%s/%s/export?%s", ExecutionsPath, url.PathEscape(requestID), q.Encode())
	r, err := c.orch.Do(ctx, http.MethodGet, path, nil, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("execution export timed out", err)
		}
		return nil, NewNetworkError("execution export failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}
	return r.Body, nil
}

// DeleteExecution removes a recorded execution. Not retried.
func (c *Client) DeleteExecution(ctx context.Context, requestID string) error {
	if requestID == "" {
		return NewValidationError("request_id must not be empty")
	}

	r, err := c.orch.Do(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", ExecutionsPath, url.PathEscape(requestID)), nil, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return NewTimeoutError("execution delete timed out", err)
		}
		return NewNetworkError("execution delete failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return ErrorFromStatus(r.Status, r.Body)
	}
	return nil
}

func (c *Client) doReplayCall(ctx context.Context, path string, out any) error {
	return c.retry.Execute(ctx, func(ctx context.Context) error {
		r, err := c.orch.Do(ctx, http.MethodGet, path, nil, c.config.Timeout)
		if err != nil {
			if transport.IsTimeout(err) {
				return NewTimeoutError("execution replay request timed out", err)
			}
			return NewNetworkError("execution replay request failed", err)
		}
		if r.Status < 200 || r.Status >= 300 {
			return ErrorFromStatus(r.Status, r.Body)
		}
		if err := json.Unmarshal(r.Body, out); err != nil {
			return NewAPIError(fmt.Sprintf("malformed replay response: %v", err), r.Status)
		}
		return nil
	})
}
