// Package policy implements the pre/post policy gate around LLM calls.
// The gate obtains decisions from the governance agent, auto-resolves
// enterprise-only decisions in community mode, optionally fails open in
// production mode, and audits every decision it produces.
package policy

import "time"

// Action is the outcome of a policy evaluation.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionBlock           Action = "block"
	ActionRedact          Action = "redact"
	ActionRequireApproval Action = "require_approval"
)

// Decision is the immutable outcome of a pre or post check.
type Decision struct {
	Action            Action
	PolicyName        string
	Reason            string
	RequiresRedaction bool
	Policies          []string
	ContextID         string
	// FailOpen marks a decision substituted because the governance
	// service was unreachable in production mode.
	FailOpen bool
}

// ExecutionContext is the immutable per-call context the gate evaluates.
// It is created at call entry and discarded at call completion.
type ExecutionContext struct {
	UserToken          string
	Query              string
	RequestType        string
	Context            map[string]any
	CredentialsPresent bool
	TimeoutBudget      time.Duration
}

// Outcome is the gate's view of a provider or agent result, inspected
// during post-check. The gate signals redaction; it never redacts.
type Outcome struct {
	Blocked           bool
	BlockReason       string
	PoliciesEvaluated []string
	StaticChecks      []string
	SecretsDetected   int
	UnsafePatterns    int
}

// CredentialContext selects community vs enterprise behavior.
type CredentialContext interface {
	HasCredentials() bool
}

// CredentialContextFunc adapts a func to CredentialContext.
type CredentialContextFunc func() bool

// HasCredentials implements CredentialContext.
func (f CredentialContextFunc) HasCredentials() bool { return f() }
