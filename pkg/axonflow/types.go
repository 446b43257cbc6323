package axonflow

import "time"

// ClientRequest is the request body sent to the AxonFlow agent.
type ClientRequest struct {
	Query       string         `json:"query"`
	UserToken   string         `json:"user_token"`
	ClientID    string         `json:"client_id,omitempty"`
	RequestType string         `json:"request_type"`
	Context     map[string]any `json:"context,omitempty"`
}

// CodeArtifact describes code detected in an LLM response. The agent
// analyzes generated code and attaches this metadata for audit purposes.
type CodeArtifact struct {
	IsCodeOutput    bool     `json:"is_code_output"`
	Language        string   `json:"language,omitempty"`
	CodeType        string   `json:"code_type,omitempty"`
	SizeBytes       int      `json:"size_bytes,omitempty"`
	LineCount       int      `json:"line_count,omitempty"`
	SecretsDetected int      `json:"secrets_detected,omitempty"`
	UnsafePatterns  int      `json:"unsafe_patterns,omitempty"`
	PoliciesChecked []string `json:"policies_checked,omitempty"`
}

// PolicyEvaluationInfo carries policy evaluation metadata returned by the agent.
type PolicyEvaluationInfo struct {
	PoliciesEvaluated []string      `json:"policies_evaluated,omitempty"`
	StaticChecks      []string      `json:"static_checks,omitempty"`
	ProcessingTime    string        `json:"processing_time,omitempty"`
	TenantID          string        `json:"tenant_id,omitempty"`
	CodeArtifact      *CodeArtifact `json:"code_artifact,omitempty"`
}

// ClientResponse is the response from the AxonFlow agent.
type ClientResponse struct {
	Success     bool                  `json:"success"`
	Data        any                   `json:"data,omitempty"`
	Result      string                `json:"result,omitempty"`
	PlanID      string                `json:"plan_id,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
	Error       string                `json:"error,omitempty"`
	Blocked     bool                  `json:"blocked"`
	BlockReason string                `json:"block_reason,omitempty"`
	PolicyInfo  *PolicyEvaluationInfo `json:"policy_info,omitempty"`
}

// TokenUsage tracks LLM token consumption for a single call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// RateLimitInfo reports the caller's rate limit budget.
type RateLimitInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// PolicyApprovalResult is the pre-check result returned in gateway mode.
// The ContextID links the later audit record back to this approval.
type PolicyApprovalResult struct {
	ContextID     string         `json:"context_id"`
	Approved      bool           `json:"approved"`
	ApprovedData  map[string]any `json:"approved_data,omitempty"`
	Policies      []string       `json:"policies,omitempty"`
	RateLimitInfo *RateLimitInfo `json:"rate_limit,omitempty"`
	ExpiresAt     time.Time      `json:"expires_at"`
	BlockReason   string         `json:"block_reason,omitempty"`
}

// AuditResult confirms that an audit record was accepted.
type AuditResult struct {
	Success bool   `json:"success"`
	AuditID string `json:"audit_id"`
}

// AuditLLMCallParams describes a completed direct LLM call for audit.
type AuditLLMCallParams struct {
	ContextID       string         `json:"context_id"`
	ResponseSummary string         `json:"response_summary"`
	Provider        string         `json:"provider"`
	Model           string         `json:"model"`
	TokenUsage      *TokenUsage    `json:"token_usage,omitempty"`
	LatencyMS       int            `json:"latency_ms"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Connector describes an MCP connector known to the agent.
type Connector struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Type         string         `json:"type"`
	Version      string         `json:"version,omitempty"`
	Description  string         `json:"description,omitempty"`
	Category     string         `json:"category,omitempty"`
	Icon         string         `json:"icon,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Capabilities []string       `json:"capabilities,omitempty"`
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
	Installed    bool           `json:"installed"`
	Healthy      bool           `json:"healthy"`
}

// ConnectorInstallRequest asks the agent to install an MCP connector.
type ConnectorInstallRequest struct {
	ConnectorID string            `json:"connector_id"`
	Name        string            `json:"name"`
	TenantID    string            `json:"tenant_id"`
	Options     map[string]any    `json:"options,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
}

// ConnectorResponse is the result of a connector query.
type ConnectorResponse struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// PlanStep is a single step in a multi-agent plan.
type PlanStep struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	DependsOn   []string       `json:"depends_on,omitempty"`
	Agent       string         `json:"agent,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// PlanResponse is a generated multi-agent plan.
type PlanResponse struct {
	PlanID     string         `json:"plan_id"`
	Steps      []PlanStep     `json:"steps"`
	Domain     string         `json:"domain"`
	Complexity int            `json:"complexity"`
	Parallel   bool           `json:"parallel"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// PlanExecutionResponse reports the state of an executing plan.
type PlanExecutionResponse struct {
	PlanID      string         `json:"plan_id"`
	Status      string         `json:"status"` // "pending", "running", "completed", "failed"
	Result      string         `json:"result,omitempty"`
	StepResults map[string]any `json:"step_results,omitempty"`
	Error       string         `json:"error,omitempty"`
	Duration    string         `json:"duration,omitempty"`
}

// ExecutionSummary summarizes a workflow execution (Execution Replay API).
type ExecutionSummary struct {
	RequestID      string     `json:"request_id"`
	WorkflowName   string     `json:"workflow_name,omitempty"`
	Status         string     `json:"status"`
	TotalSteps     int        `json:"total_steps"`
	CompletedSteps int        `json:"completed_steps"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	DurationMS     int64      `json:"duration_ms,omitempty"`
	TotalTokens    int        `json:"total_tokens,omitempty"`
	TotalCostUSD   float64    `json:"total_cost_usd,omitempty"`
	OrgID          string     `json:"org_id,omitempty"`
	TenantID       string     `json:"tenant_id,omitempty"`
	UserID         string     `json:"user_id,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	InputSummary   any        `json:"input_summary,omitempty"`
	OutputSummary  any        `json:"output_summary,omitempty"`
}

// ExecutionSnapshot is a recorded step of a workflow execution.
type ExecutionSnapshot struct {
	RequestID         string     `json:"request_id"`
	StepIndex         int        `json:"step_index"`
	StepName          string     `json:"step_name"`
	Status            string     `json:"status"`
	StartedAt         time.Time  `json:"started_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	DurationMS        int64      `json:"duration_ms,omitempty"`
	Provider          string     `json:"provider,omitempty"`
	Model             string     `json:"model,omitempty"`
	TokensIn          int        `json:"tokens_in,omitempty"`
	TokensOut         int        `json:"tokens_out,omitempty"`
	CostUSD           float64    `json:"cost_usd,omitempty"`
	Input             any        `json:"input,omitempty"`
	Output            any        `json:"output,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	PoliciesChecked   []string   `json:"policies_checked,omitempty"`
	PoliciesTriggered []string   `json:"policies_triggered,omitempty"`
	ApprovalRequired  bool       `json:"approval_required,omitempty"`
	ApprovedBy        string     `json:"approved_by,omitempty"`
	ApprovedAt        string     `json:"approved_at,omitempty"`
}

// TimelineEntry is a single entry in an execution timeline.
type TimelineEntry struct {
	StepIndex   int        `json:"step_index"`
	StepName    string     `json:"step_name"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	DurationMS  int64      `json:"duration_ms,omitempty"`
	HasError    bool       `json:"has_error"`
	HasApproval bool       `json:"has_approval"`
}

// ListExecutionsResponse is a page of execution summaries.
type ListExecutionsResponse struct {
	Executions []ExecutionSummary `json:"executions"`
	Total      int                `json:"total"`
	Limit      int                `json:"limit"`
	Offset     int                `json:"offset"`
}

// ExecutionDetail is a full execution with its recorded steps.
type ExecutionDetail struct {
	Summary ExecutionSummary    `json:"summary"`
	Steps   []ExecutionSnapshot `json:"steps"`
}

// ListExecutionsOptions filters and paginates execution listings.
type ListExecutionsOptions struct {
	Limit      int
	Offset     int
	Status     string
	WorkflowID string
	StartTime  *time.Time
	EndTime    *time.Time
}

// ExecutionExportOptions controls execution export content.
type ExecutionExportOptions struct {
	Format          string
	IncludeInput    bool
	IncludeOutput   bool
	IncludePolicies bool
}
