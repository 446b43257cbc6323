package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/getaxonflow/axonflow-go/internal/observability"
	"github.com/getaxonflow/axonflow-go/internal/transport"
)

// PreCheckPath is the agent endpoint evaluated before a provider call.
const PreCheckPath = "/api/v1/policy/pre-check"

// GateConfig configures a Gate.
type GateConfig struct {
	Transport   transport.Doer
	Credentials CredentialContext
	// FailOpen substitutes an allow decision when the governance agent
	// is unreachable. Production-mode behavior; community deployments
	// fail closed.
	FailOpen bool
	// Timeout bounds the pre-check round trip.
	Timeout time.Duration
	Audit   *observability.AuditLogger
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// Gate performs policy pre-checks and post-checks around LLM calls.
type Gate struct {
	transport transport.Doer
	creds     CredentialContext
	failOpen  bool
	timeout   time.Duration
	audit     *observability.AuditLogger
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewGate creates a policy gate.
func NewGate(cfg GateConfig) *Gate {
	return &Gate{
		transport: cfg.Transport,
		creds:     cfg.Credentials,
		failOpen:  cfg.FailOpen,
		timeout:   cfg.Timeout,
		audit:     cfg.Audit,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "policy-gate").Logger(),
	}
}

// preCheckRequest is the pre-check wire request.
type preCheckRequest struct {
	Query       string         `json:"query"`
	UserToken   string         `json:"user_token"`
	RequestType string         `json:"request_type"`
	Context     map[string]any `json:"context,omitempty"`
}

// preCheckResponse is the pre-check wire response.
type preCheckResponse struct {
	ContextID   string   `json:"context_id"`
	Approved    bool     `json:"approved"`
	Action      string   `json:"action,omitempty"`
	Policy      string   `json:"policy,omitempty"`
	Policies    []string `json:"policies,omitempty"`
	BlockReason string   `json:"block_reason,omitempty"`
}

// PreCheck evaluates the call against governance policy before any
// provider call is made. A block decision means the caller must abort
// without touching the provider.
//
// Without credentials, enterprise-only escalation is unavailable and a
// require_approval decision auto-resolves to allow. With the gate
// configured fail-open, an unreachable agent yields an allow decision
// instead of an error.
func (g *Gate) PreCheck(ctx context.Context, ec *ExecutionContext) (*Decision, error) {
	resp, err := g.transport.Do(ctx, http.MethodPost, PreCheckPath, preCheckRequest{
		Query:       ec.Query,
		UserToken:   ec.UserToken,
		RequestType: ec.RequestType,
		Context:     ec.Context,
	}, g.timeout)
	if err != nil {
		if g.failOpen {
			d := &Decision{
				Action:     ActionAllow,
				PolicyName: "fail-open",
				Reason:     "governance service unreachable; production mode allows",
				FailOpen:   true,
			}
			g.logger.Warn().Err(err).Msg("Policy pre-check unreachable, failing open")
			g.record(ctx, "pre_check", ec, d)
			return d, nil
		}
		return nil, fmt.Errorf("policy pre-check failed: %w", err)
	}

	if resp.Status < 200 || resp.Status >= 300 {
		return nil, &StatusError{Status: resp.Status, Body: resp.Body}
	}

	var pcr preCheckResponse
	if err := json.Unmarshal(resp.Body, &pcr); err != nil {
		return nil, fmt.Errorf("failed to decode pre-check response: %w", err)
	}

	d := decisionFrom(pcr)

	if d.Action == ActionRequireApproval && !g.creds.HasCredentials() {
		// Community deployments have no approval queue to escalate to.
		d = &Decision{
			Action:     ActionAllow,
			PolicyName: d.PolicyName,
			Reason:     "approval requirement auto-resolved: community mode",
			Policies:   d.Policies,
			ContextID:  d.ContextID,
		}
	}

	g.record(ctx, "pre_check", ec, d)
	return d, nil
}

// PostCheck inspects a completed call's outcome for policy triggers.
// When the outcome contains detected secrets or unsafe patterns, the
// decision requires redaction; performing the redaction is the caller's
// responsibility.
func (g *Gate) PostCheck(ctx context.Context, ec *ExecutionContext, out Outcome) *Decision {
	var d *Decision
	switch {
	case out.Blocked:
		d = &Decision{
			Action:   ActionBlock,
			Reason:   out.BlockReason,
			Policies: out.PoliciesEvaluated,
		}
		if len(out.PoliciesEvaluated) > 0 {
			d.PolicyName = out.PoliciesEvaluated[0]
		}
	case out.SecretsDetected > 0 || out.UnsafePatterns > 0:
		d = &Decision{
			Action:            ActionRedact,
			Reason:            fmt.Sprintf("sensitive content detected: %d secrets, %d unsafe patterns", out.SecretsDetected, out.UnsafePatterns),
			RequiresRedaction: true,
			Policies:          out.PoliciesEvaluated,
		}
	default:
		d = &Decision{
			Action:   ActionAllow,
			Policies: out.PoliciesEvaluated,
		}
	}

	g.record(ctx, "post_check", ec, d)
	return d
}

func (g *Gate) record(ctx context.Context, phase string, ec *ExecutionContext, d *Decision) {
	if g.metrics != nil {
		g.metrics.RecordPolicyDecision(phase, string(d.Action))
	}
	if g.audit == nil {
		return
	}
	metadata := map[string]any{
		"request_type": ec.RequestType,
	}
	if d.Reason != "" {
		metadata["reason"] = d.Reason
	}
	if d.FailOpen {
		metadata["fail_open"] = true
	}
	g.audit.RecordPolicyDecision(ctx, phase, ec.UserToken, string(d.Action), d.PolicyName, metadata)
}

func decisionFrom(pcr preCheckResponse) *Decision {
	action := Action(pcr.Action)
	if action == "" {
		if pcr.Approved {
			action = ActionAllow
		} else {
			action = ActionBlock
		}
	}

	policyName := pcr.Policy
	if policyName == "" && len(pcr.Policies) > 0 {
		policyName = pcr.Policies[0]
	}

	return &Decision{
		Action:     action,
		PolicyName: policyName,
		Reason:     pcr.BlockReason,
		Policies:   pcr.Policies,
		ContextID:  pcr.ContextID,
	}
}

// StatusError reports a non-2xx pre-check response. The client maps it
// onto the SDK error taxonomy.
type StatusError struct {
	Status int
	Body   []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("policy pre-check returned HTTP %d", e.Status)
}
