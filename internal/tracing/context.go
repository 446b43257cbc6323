// Package tracing initializes OpenTelemetry for the SDK and carries
// per-call identifiers through contexts.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// TraceIDKey is the context key for the trace ID.
	TraceIDKey ContextKey = "trace_id"
	// RequestIDKey is the context key for the per-call request ID.
	RequestIDKey ContextKey = "request_id"
	// PlanIDKey is the context key for the active plan ID.
	PlanIDKey ContextKey = "plan_id"
	// PolicyContextIDKey is the context key linking gateway-mode audit
	// records back to their pre-check approval.
	PolicyContextIDKey ContextKey = "policy_context_id"
)

// NewTraceID generates a new trace ID.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithPlanID adds a plan ID to the context.
func WithPlanID(ctx context.Context, planID string) context.Context {
	return context.WithValue(ctx, PlanIDKey, planID)
}

// WithPolicyContextID adds an approval context ID to the context.
func WithPolicyContextID(ctx context.Context, contextID string) context.Context {
	return context.WithValue(ctx, PolicyContextIDKey, contextID)
}

// GetTraceID retrieves the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetPlanID retrieves the plan ID from the context.
func GetPlanID(ctx context.Context) string {
	return stringValue(ctx, PlanIDKey)
}

// GetPolicyContextID retrieves the approval context ID from the context.
func GetPolicyContextID(ctx context.Context) string {
	return stringValue(ctx, PolicyContextIDKey)
}

// NewRequestContext stamps ctx with a fresh trace ID and request ID.
func NewRequestContext(ctx context.Context) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	return WithRequestID(ctx, uuid.New().String())
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
