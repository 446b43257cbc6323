package axonflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/getaxonflow/axonflow-go/internal/cache"
	"github.com/getaxonflow/axonflow-go/internal/tracing"
	"github.com/getaxonflow/axonflow-go/internal/transport"
	"github.com/getaxonflow/axonflow-go/pkg/policy"
)

// QueryPath is the agent endpoint for governed query execution.
const QueryPath = "/api/v1/query"

type queryOptions struct {
	context   map[string]any
	timeout   time.Duration
	skipCache bool
}

// QueryOption customizes a single ExecuteQuery call.
type QueryOption func(*queryOptions)

// WithContext attaches request context forwarded to the agent and
// included in the cache fingerprint.
func WithContext(reqContext map[string]any) QueryOption {
	return func(o *queryOptions) { o.context = reqContext }
}

// WithTimeout overrides the configured timeout for this call.
func WithTimeout(timeout time.Duration) QueryOption {
	return func(o *queryOptions) { o.timeout = timeout }
}

// WithoutCache bypasses the response cache for this call, both lookup
// and store.
func WithoutCache() QueryOption {
	return func(o *queryOptions) { o.skipCache = true }
}

// ExecuteQuery runs a query through the governed execution pipeline:
// cache lookup, policy pre-check, retried agent call, policy post-check,
// audit, cache store. Identical queries (same query, request type, and
// context; user token excluded) share a cache entry within the TTL.
//
// A block decision aborts before the agent call and surfaces as a
// policy violation error. Cancelling ctx stops any pending retry wait
// and suppresses the cache store for the cancelled call.
func (c *Client) ExecuteQuery(ctx context.Context, userToken, query, requestType string, opts ...QueryOption) (*ClientResponse, error) {
	if query == "" {
		return nil, NewValidationError("query must not be empty")
	}
	if requestType == "" {
		requestType = "chat"
	}

	qo := queryOptions{timeout: c.config.Timeout}
	for _, opt := range opts {
		opt(&qo)
	}

	ctx = tracing.NewRequestContext(ctx)
	ctx, span := tracing.StartSpan(ctx, "axonflow", "execute_query",
		attribute.String("request_type", requestType),
	)
	defer span.End()

	key := ""
	if c.cache != nil && !qo.skipCache {
		fp, err := cache.Fingerprint(query, requestType, qo.context)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to fingerprint request, skipping cache")
		} else {
			key = fp
			if v, ok := c.cache.Get(key); ok {
				c.metrics.CacheHitsTotal.Inc()
				c.logger.Debug().Str("key", key).Msg("Cache hit")
				return v.(*ClientResponse), nil
			}
			c.metrics.CacheMissTotal.Inc()
		}
	}

	start := time.Now()
	value, err := c.bridge.Run(ctx, "execute_query", func(ctx context.Context) (any, error) {
		return c.executeQueryTask(ctx, userToken, query, requestType, qo)
	})
	c.metrics.RecordQuery(requestType, time.Since(start), err == nil)

	if err != nil {
		c.audit.RecordQuery(ctx, userToken, requestType, "failure", map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	resp := value.(*ClientResponse)
	c.audit.RecordQuery(ctx, userToken, requestType, "success", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
	})

	// A cancelled call must not populate the cache.
	if key != "" && resp.Success && ctx.Err() == nil {
		c.cache.Set(key, resp, c.config.Cache.TTL)
	}
	return resp, nil
}

// executeQueryTask is the pipeline body run on the execution core.
// Pre-check strictly precedes the agent call, which strictly precedes
// post-check.
func (c *Client) executeQueryTask(ctx context.Context, userToken, query, requestType string, qo queryOptions) (*ClientResponse, error) {
	ec := &policy.ExecutionContext{
		UserToken:          userToken,
		Query:              query,
		RequestType:        requestType,
		Context:            qo.context,
		CredentialsPresent: c.config.HasCredentials(),
		TimeoutBudget:      qo.timeout,
	}

	decision, err := c.gate.PreCheck(ctx, ec)
	if err != nil {
		return nil, mapGateError(err)
	}
	if decision.Action == policy.ActionBlock {
		return nil, NewPolicyViolationError(
			fmt.Sprintf("query blocked by policy %s", decision.PolicyName),
			decision.PolicyName,
			decision.Reason,
		)
	}
	// With credentials present, require_approval is not auto-resolved;
	// the query stays unexecuted until the approval is resolved out of
	// band.
	if decision.Action == policy.ActionRequireApproval {
		return nil, NewApprovalPendingError(decision.PolicyName, decision.Reason, decision.ContextID)
	}
	if decision.ContextID != "" {
		ctx = tracing.WithPolicyContextID(ctx, decision.ContextID)
	}

	var resp *ClientResponse
	err = c.retry.Execute(ctx, func(ctx context.Context) error {
		r, err := c.doQuery(ctx, userToken, query, requestType, qo)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, NewTimeoutError("query timed out", err)
		}
		return nil, err
	}

	post := c.gate.PostCheck(ctx, ec, outcomeFrom(resp))
	if post.Action == policy.ActionBlock {
		return nil, NewPolicyViolationError(
			fmt.Sprintf("response blocked by policy %s", post.PolicyName),
			post.PolicyName,
			post.Reason,
		)
	}
	if post.RequiresRedaction {
		// The gate signals; redaction is applied by the consumer.
		if resp.Metadata == nil {
			resp.Metadata = map[string]any{}
		}
		resp.Metadata["requires_redaction"] = true
	}

	return resp, nil
}

// doQuery is the single transport attempt wrapped by the retry loop.
func (c *Client) doQuery(ctx context.Context, userToken, query, requestType string, qo queryOptions) (*ClientResponse, error) {
	r, err := c.agent.Do(ctx, http.MethodPost, QueryPath, ClientRequest{
		Query:       query,
		UserToken:   userToken,
		ClientID:    c.config.ClientID,
		RequestType: requestType,
		Context:     qo.context,
	}, qo.timeout)
	if err != nil {
		c.metrics.TransportCalls.WithLabelValues(http.MethodPost, "error").Inc()
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("agent request timed out", err)
		}
		return nil, NewNetworkError("agent request failed", err)
	}
	c.metrics.TransportCalls.WithLabelValues(http.MethodPost, "success").Inc()

	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}

	var resp ClientResponse
	if err := json.Unmarshal(r.Body, &resp); err != nil {
		return nil, NewAPIError(fmt.Sprintf("malformed agent response: %v", err), r.Status)
	}
	// A blocked flag is not an error here; post-check turns it into a
	// recorded block decision.
	return &resp, nil
}

func outcomeFrom(resp *ClientResponse) policy.Outcome {
	out := policy.Outcome{
		Blocked:     resp.Blocked,
		BlockReason: resp.BlockReason,
	}
	if resp.PolicyInfo != nil {
		out.PoliciesEvaluated = resp.PolicyInfo.PoliciesEvaluated
		out.StaticChecks = resp.PolicyInfo.StaticChecks
		if ca := resp.PolicyInfo.CodeArtifact; ca != nil {
			out.SecretsDetected = ca.SecretsDetected
			out.UnsafePatterns = ca.UnsafePatterns
		}
	}
	return out
}

// mapGateError converts gate transport failures onto the SDK taxonomy.
func mapGateError(err error) error {
	var statusErr *policy.StatusError
	if errors.As(err, &statusErr) {
		return ErrorFromStatus(statusErr.Status, statusErr.Body)
	}
	if transport.IsTimeout(err) {
		return NewTimeoutError("policy pre-check timed out", err)
	}
	return NewNetworkError("policy pre-check failed", err)
}
