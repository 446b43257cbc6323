// Package observability provides the SDK's audit sink and Prometheus
// metrics. Audit records are fire-and-forget: recording never blocks
// the execution pipeline and failures are swallowed.
package observability

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/getaxonflow/axonflow-go/internal/tracing"
)

// AuditEvent is a structured governance event.
type AuditEvent struct {
	Type      string         `json:"event_type"` // "policy", "query", "llm_call", "plan"
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor,omitempty"` // user token subject or client ID
	Action    string         `json:"action"`          // e.g. "pre_check", "post_check", "query_executed"
	Status    string         `json:"status"`          // "allow", "block", "success", "failure", ...
	Metadata  map[string]any `json:"metadata,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

// AuditLogger records audit events to a structured log and, when a span
// is active, as OpenTelemetry span events. One instance per client.
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	file   *os.File
}

// NewAuditLogger creates an audit logger writing to the given logger.
func NewAuditLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// NewAuditFileLogger creates an audit logger that appends JSON records
// to a file.
func NewAuditFileLogger(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{
		logger: zerolog.New(file).With().Timestamp().Logger(),
		file:   file,
	}, nil
}

// Record emits an audit event. Fire-and-forget.
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()
		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.actor", event.Actor),
		))
	}
	if event.TraceID == "" {
		event.TraceID = tracing.GetTraceID(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("type", event.Type).
		Str("actor", event.Actor).
		Str("action", event.Action).
		Str("status", event.Status).
		Str("trace_id", event.TraceID)
	if id := tracing.GetRequestID(ctx); id != "" {
		entry = entry.Str("request_id", id)
	}
	if id := tracing.GetPlanID(ctx); id != "" {
		entry = entry.Str("plan_id", id)
	}
	if id := tracing.GetPolicyContextID(ctx); id != "" {
		entry = entry.Str("policy_context_id", id)
	}
	if event.Metadata != nil {
		entry = entry.Interface("metadata", event.Metadata)
	}
	entry.Msg("audit")
}

// Close closes the underlying file, if any.
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// RecordPolicyDecision records a pre or post policy check outcome.
func (a *AuditLogger) RecordPolicyDecision(ctx context.Context, phase, actor, action, policy string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	if policy != "" {
		metadata["policy"] = policy
	}
	a.Record(ctx, AuditEvent{
		Type:     "policy",
		Actor:    actor,
		Action:   phase,
		Status:   action,
		Metadata: metadata,
	})
}

// RecordLLMCall records an intercepted provider call after it returns.
func (a *AuditLogger) RecordLLMCall(ctx context.Context, actor, provider, model, status string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["provider"] = provider
	if model != "" {
		metadata["model"] = model
	}
	a.Record(ctx, AuditEvent{
		Type:     "llm_call",
		Actor:    actor,
		Action:   "generate",
		Status:   status,
		Metadata: metadata,
	})
}

// RecordPlanExecution records a plan execution request. The plan ID
// rides in on the context.
func (a *AuditLogger) RecordPlanExecution(ctx context.Context, actor, status string) {
	a.Record(ctx, AuditEvent{
		Type:   "plan",
		Actor:  actor,
		Action: "execute_plan",
		Status: status,
	})
}

// RecordQuery records a completed (or failed) query execution.
func (a *AuditLogger) RecordQuery(ctx context.Context, actor, requestType, status string, metadata map[string]any) {
	a.Record(ctx, AuditEvent{
		Type:     "query",
		Actor:    actor,
		Action:   "execute:" + requestType,
		Status:   status,
		Metadata: metadata,
	})
}
