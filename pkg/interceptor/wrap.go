package interceptor

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/getaxonflow/axonflow-go/internal/logger"
	"github.com/getaxonflow/axonflow-go/internal/observability"
	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
	"github.com/getaxonflow/axonflow-go/pkg/policy"
)

// Option customizes a wrapped generator.
type Option func(*wrapped)

// WithUserToken sets the user identity carried into policy checks and
// audit records.
func WithUserToken(token string) Option {
	return func(w *wrapped) { w.userToken = token }
}

// WithRequestType overrides the request type reported to the gate.
// Defaults to "chat".
func WithRequestType(requestType string) Option {
	return func(w *wrapped) { w.requestType = requestType }
}

// WithLogger sets the wrapper's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(w *wrapped) { w.logger = log.With().Str("component", "interceptor").Logger() }
}

// Wrap returns a Generator that routes every call through the policy
// gate: pre-check before the provider is touched, post-check on the
// result, and exactly one audit pair (pre-check decision plus call
// record) per invocation, including failed ones.
//
// A block decision from the pre-check aborts the call with a
// PolicyViolationError; the provider is never invoked. A redact
// decision from the post-check scrubs sensitive content from the
// response before it is returned.
func Wrap(gen Generator, gate *policy.Gate, audit *observability.AuditLogger, opts ...Option) Generator {
	w := &wrapped{
		gen:         gen,
		gate:        gate,
		audit:       audit,
		redactor:    logger.NewRedactor(),
		requestType: "chat",
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

type wrapped struct {
	gen         Generator
	gate        *policy.Gate
	audit       *observability.AuditLogger
	redactor    *logger.Redactor
	userToken   string
	requestType string
	logger      zerolog.Logger
}

// Provider reports the underlying provider's name.
func (w *wrapped) Provider() string {
	return w.gen.Provider()
}

// Generate implements Generator.
func (w *wrapped) Generate(ctx context.Context, prompt Prompt) (*Generation, error) {
	ec := &policy.ExecutionContext{
		UserToken:   w.userToken,
		Query:       flatten(prompt),
		RequestType: w.requestType,
		Context: map[string]any{
			"provider": w.gen.Provider(),
			"model":    prompt.Model,
		},
	}

	decision, err := w.gate.PreCheck(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("policy pre-check failed for %s call: %w", w.gen.Provider(), err)
	}
	if decision.Action == policy.ActionBlock {
		w.recordCall(ctx, prompt.Model, "blocked", nil, nil)
		return nil, axonflow.NewPolicyViolationError(
			fmt.Sprintf("call blocked by policy %s", decision.PolicyName),
			decision.PolicyName,
			decision.Reason,
		)
	}
	if decision.Action == policy.ActionRequireApproval {
		w.recordCall(ctx, prompt.Model, "approval_required", nil, nil)
		return nil, axonflow.NewApprovalPendingError(decision.PolicyName, decision.Reason, decision.ContextID)
	}

	gen, err := w.gen.Generate(ctx, prompt)
	if err != nil {
		w.recordCall(ctx, prompt.Model, "failure", nil, err)
		return nil, err
	}

	post := w.gate.PostCheck(ctx, ec, policy.Outcome{
		SecretsDetected: countSecrets(w.redactor, gen.Content),
	})
	if post.RequiresRedaction {
		gen.Content = w.redactor.Redact(gen.Content)
		gen.Redacted = true
		w.logger.Debug().Str("provider", w.gen.Provider()).Msg("Response content redacted")
	}

	w.recordCall(ctx, prompt.Model, "success", gen, nil)
	return gen, nil
}

func (w *wrapped) recordCall(ctx context.Context, model, status string, gen *Generation, err error) {
	if w.audit == nil {
		return
	}
	metadata := map[string]any{}
	if err != nil {
		metadata["error"] = err.Error()
	}
	if gen != nil && gen.Usage != nil {
		metadata["input_tokens"] = gen.Usage.InputTokens
		metadata["output_tokens"] = gen.Usage.OutputTokens
	}
	if gen != nil && gen.Redacted {
		metadata["redacted"] = true
	}
	w.audit.RecordLLMCall(ctx, w.userToken, w.gen.Provider(), model, status, metadata)
}

// flatten renders a prompt as the single query string policy checks
// evaluate.
func flatten(prompt Prompt) string {
	var b strings.Builder
	if prompt.System != "" {
		b.WriteString(prompt.System)
		b.WriteString("\n")
	}
	for _, msg := range prompt.Messages {
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func countSecrets(r *logger.Redactor, content string) int {
	if content == r.Redact(content) {
		return 0
	}
	return 1
}
