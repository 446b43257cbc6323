package axonflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getaxonflow/axonflow-go/internal/transport"
)

// Gateway mode endpoints. Gateway mode lets callers invoke their LLM
// provider directly while keeping governance: a pre-check obtains
// policy approval and filtered data, and an audit call reports the
// completed LLM call back for compliance.
const (
	PolicyContextPath = "/api/v1/policy/context"
	AuditLLMCallPath  = "/api/v1/audit/llm-call"
)

type policyContextRequest struct {
	UserToken   string         `json:"user_token"`
	Query       string         `json:"query"`
	DataSources []string       `json:"data_sources,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// GetPolicyApprovedContext performs the gateway-mode pre-check. The
// returned approval carries the context ID that links the later
// AuditLLMCall back to this approval, plus policy-filtered data to
// build the prompt from. A non-approved result is returned, not an
// error; callers decide how to surface the block.
func (c *Client) GetPolicyApprovedContext(ctx context.Context, userToken, query string, dataSources []string, extra map[string]any) (*PolicyApprovalResult, error) {
	if query == "" {
		return nil, NewValidationError("query must not be empty")
	}

	r, err := c.agent.Do(ctx, http.MethodPost, PolicyContextPath, policyContextRequest{
		UserToken:   userToken,
		Query:       query,
		DataSources: dataSources,
		Context:     extra,
	}, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("policy context request timed out", err)
		}
		return nil, NewNetworkError("policy context request failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}

	var result PolicyApprovalResult
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, NewAPIError(fmt.Sprintf("malformed policy context response: %v", err), r.Status)
	}

	c.audit.RecordPolicyDecision(ctx, "pre_check", userToken, approvalStatus(result.Approved), "", map[string]any{
		"context_id": result.ContextID,
		"gateway":    true,
	})
	return &result, nil
}

// AuditLLMCall reports a completed direct LLM call. The params'
// ContextID must come from a prior GetPolicyApprovedContext. Callers
// using the interceptor get this for free; direct gateway users call
// it themselves after each provider call.
func (c *Client) AuditLLMCall(ctx context.Context, params AuditLLMCallParams) (*AuditResult, error) {
	if params.ContextID == "" {
		return nil, NewValidationError("context_id is required")
	}

	r, err := c.agent.Do(ctx, http.MethodPost, AuditLLMCallPath, params, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("audit request timed out", err)
		}
		return nil, NewNetworkError("audit request failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}

	var result AuditResult
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, NewAPIError(fmt.Sprintf("malformed audit response: %v", err), r.Status)
	}
	return &result, nil
}

func approvalStatus(approved bool) string {
	if approved {
		return "allow"
	}
	return "block"
}
