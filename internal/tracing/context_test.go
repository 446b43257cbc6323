package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextValues(t *testing.T) {
	t.Run("should round-trip identifiers through the context", func(t *testing.T) {
		ctx := context.Background()
		ctx = WithTraceID(ctx, "trace-1")
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithPlanID(ctx, "plan-1")
		ctx = WithPolicyContextID(ctx, "ctx-1")

		assert.Equal(t, "trace-1", GetTraceID(ctx))
		assert.Equal(t, "req-1", GetRequestID(ctx))
		assert.Equal(t, "plan-1", GetPlanID(ctx))
		assert.Equal(t, "ctx-1", GetPolicyContextID(ctx))
	})

	t.Run("should return empty strings for unset keys", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetPlanID(ctx))
	})

	t.Run("should stamp fresh identifiers on a request context", func(t *testing.T) {
		ctx := NewRequestContext(context.Background())
		assert.NotEmpty(t, GetTraceID(ctx))
		assert.NotEmpty(t, GetRequestID(ctx))

		other := NewRequestContext(context.Background())
		assert.NotEqual(t, GetRequestID(ctx), GetRequestID(other))
	})
}
