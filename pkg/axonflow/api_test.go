package axonflow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAPIClient points both the agent and orchestrator transports at the
// same stub server.
func newAPIClient(t *testing.T, handler http.Handler, mutate ...func(*Config)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	nop := zerolog.Nop()
	cfg := Config{
		AgentURL:        server.URL,
		OrchestratorURL: server.URL,
		Mode:            ModeCommunity,
		Timeout:         5 * time.Second,
		Logger:          &nop,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGatewayMode(t *testing.T) {
	t.Run("should return the approved context with filtered data", func(t *testing.T) {
		var gotReq map[string]any
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, PolicyContextPath, r.URL.Path)
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"approved":   true,
				"context_id": "ctx-42",
				"data":       map[string]any{"rows": 3},
			})
		}))

		result, err := client.GetPolicyApprovedContext(context.Background(), "tok", "list users", []string{"postgres"}, nil)
		require.NoError(t, err)
		assert.True(t, result.Approved)
		assert.Equal(t, "ctx-42", result.ContextID)
		assert.Equal(t, []any{"postgres"}, gotReq["data_sources"].([]any))
	})

	t.Run("should return a non-approved result without erroring", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"approved":     false,
				"block_reason": "data source not permitted",
			})
		}))

		result, err := client.GetPolicyApprovedContext(context.Background(), "tok", "list users", nil, nil)
		require.NoError(t, err)
		assert.False(t, result.Approved)
	})

	t.Run("should reject an empty query", func(t *testing.T) {
		client := newAPIClient(t, http.NotFoundHandler())
		_, err := client.GetPolicyApprovedContext(context.Background(), "tok", "", nil, nil)
		assert.True(t, IsValidation(err))
	})

	t.Run("should require a context id for the audit call", func(t *testing.T) {
		client := newAPIClient(t, http.NotFoundHandler())
		_, err := client.AuditLLMCall(context.Background(), AuditLLMCallParams{Provider: "openai"})
		assert.True(t, IsValidation(err))
	})

	t.Run("should report a completed call for audit", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, AuditLLMCallPath, r.URL.Path)
			var params AuditLLMCallParams
			_ = json.NewDecoder(r.Body).Decode(&params)
			assert.Equal(t, "ctx-42", params.ContextID)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "audit_id": "a-1"})
		}))

		result, err := client.AuditLLMCall(context.Background(), AuditLLMCallParams{
			ContextID:       "ctx-42",
			Provider:        "openai",
			Model:           "gpt-4",
			ResponseSummary: "ok",
			TokenUsage:      &TokenUsage{PromptTokens: 5, CompletionTokens: 7, TotalTokens: 12},
		})
		require.NoError(t, err)
		assert.True(t, result.Success)
	})
}

func TestConnectors(t *testing.T) {
	t.Run("should list connectors from a bare array", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode([]Connector{{ID: "postgres", Installed: true}})
		}))

		connectors, err := client.ListConnectors(context.Background())
		require.NoError(t, err)
		require.Len(t, connectors, 1)
		assert.Equal(t, "postgres", connectors[0].ID)
	})

	t.Run("should list connectors from a wrapped response", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"connectors": []Connector{{ID: "jira"}, {ID: "slack"}},
			})
		}))

		connectors, err := client.ListConnectors(context.Background())
		require.NoError(t, err)
		assert.Len(t, connectors, 2)
	})

	t.Run("should install against the connector-specific path", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, ConnectorsPath+"/postgres/install", r.URL.Path)
			_ = json.NewEncoder(w).Encode(ConnectorResponse{Success: true})
		}))

		resp, err := client.InstallConnector(context.Background(), ConnectorInstallRequest{
			ConnectorID: "postgres",
			Name:        "prod-db",
		})
		require.NoError(t, err)
		assert.True(t, resp.Success)
	})

	t.Run("should not retry a failed install", func(t *testing.T) {
		var calls atomic.Int32
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}), func(cfg *Config) {
			cfg.Retry = RetryConfig{Enabled: true, MaxAttempts: 3, InitialDelay: 5 * time.Millisecond}
		})

		_, err := client.InstallConnector(context.Background(), ConnectorInstallRequest{ConnectorID: "postgres"})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("should retry connector queries", func(t *testing.T) {
		var calls atomic.Int32
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(ConnectorResponse{Success: true, Data: "rows"})
		}), func(cfg *Config) {
			cfg.Retry = RetryConfig{Enabled: true, MaxAttempts: 3, InitialDelay: 5 * time.Millisecond}
		})

		resp, err := client.QueryConnector(context.Background(), "postgres", map[string]any{"sql": "select 1"})
		require.NoError(t, err)
		assert.True(t, resp.Success)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("should require a connector id", func(t *testing.T) {
		client := newAPIClient(t, http.NotFoundHandler())
		_, err := client.QueryConnector(context.Background(), "", nil)
		assert.True(t, IsValidation(err))
	})
}

func TestPlans(t *testing.T) {
	t.Run("should generate a plan", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, PlansPath, r.URL.Path)
			require.Equal(t, http.MethodPost, r.Method)
			_ = json.NewEncoder(w).Encode(PlanResponse{
				PlanID: "plan-1",
				Domain: "travel",
				Steps:  []PlanStep{{ID: "s1", Name: "search flights"}},
			})
		}))

		plan, err := client.GeneratePlan(context.Background(), "book a trip", "travel")
		require.NoError(t, err)
		assert.Equal(t, "plan-1", plan.PlanID)
		require.Len(t, plan.Steps, 1)
	})

	t.Run("should not retry plan execution", func(t *testing.T) {
		var calls atomic.Int32
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusServiceUnavailable)
		}), func(cfg *Config) {
			cfg.Retry = RetryConfig{Enabled: true, MaxAttempts: 3, InitialDelay: 5 * time.Millisecond}
		})

		_, err := client.ExecutePlan(context.Background(), "plan-1")
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load(), "a failed execute must not be re-issued")
	})

	t.Run("should retry plan status polls", func(t *testing.T) {
		var calls atomic.Int32
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_ = json.NewEncoder(w).Encode(PlanExecutionResponse{PlanID: "plan-1", Status: "running"})
		}), func(cfg *Config) {
			cfg.Retry = RetryConfig{Enabled: true, MaxAttempts: 3, InitialDelay: 5 * time.Millisecond}
		})

		exec, err := client.GetPlanStatus(context.Background(), "plan-1")
		require.NoError(t, err)
		assert.Equal(t, "running", exec.Status)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("should execute a plan and report its status", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc(PlansPath+"/plan-1/execute", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(PlanExecutionResponse{PlanID: "plan-1", Status: "running"})
		})
		mux.HandleFunc(PlansPath+"/plan-1/status", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(PlanExecutionResponse{PlanID: "plan-1", Status: "completed", Result: "done"})
		})
		client := newAPIClient(t, mux)

		exec, err := client.ExecutePlan(context.Background(), "plan-1")
		require.NoError(t, err)
		assert.Equal(t, "running", exec.Status)

		status, err := client.GetPlanStatus(context.Background(), "plan-1")
		require.NoError(t, err)
		assert.Equal(t, "completed", status.Status)
		assert.Equal(t, "done", status.Result)
	})

	t.Run("should require a plan id", func(t *testing.T) {
		client := newAPIClient(t, http.NotFoundHandler())
		_, err := client.ExecutePlan(context.Background(), "")
		assert.True(t, IsValidation(err))
	})
}

func TestExecutionReplay(t *testing.T) {
	t.Run("should list executions with filters as query parameters", func(t *testing.T) {
		start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "10", q.Get("limit"))
			assert.Equal(t, "completed", q.Get("status"))
			assert.Equal(t, "2026-01-01T00:00:00Z", q.Get("start_time"))
			_ = json.NewEncoder(w).Encode(ListExecutionsResponse{
				Executions: []ExecutionSummary{{RequestID: "req-1", Status: "completed"}},
				Total:      1,
			})
		}))

		page, err := client.ListExecutions(context.Background(), ListExecutionsOptions{
			Limit:     10,
			Status:    "completed",
			StartTime: &start,
		})
		require.NoError(t, err)
		require.Len(t, page.Executions, 1)
		assert.Equal(t, "req-1", page.Executions[0].RequestID)
	})

	t.Run("should fetch one execution with steps", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, ExecutionsPath+"/req-1", r.URL.Path)
			_ = json.NewEncoder(w).Encode(ExecutionDetail{
				Summary: ExecutionSummary{RequestID: "req-1"},
				Steps:   []ExecutionSnapshot{{StepIndex: 0, StepName: "plan"}},
			})
		}))

		detail, err := client.GetExecution(context.Background(), "req-1")
		require.NoError(t, err)
		assert.Equal(t, "req-1", detail.Summary.RequestID)
		require.Len(t, detail.Steps, 1)
	})

	t.Run("should unwrap the steps envelope", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"steps": []ExecutionSnapshot{{StepName: "plan"}, {StepName: "execute"}},
			})
		}))

		steps, err := client.GetExecutionSteps(context.Background(), "req-1")
		require.NoError(t, err)
		assert.Len(t, steps, 2)
	})

	t.Run("should unwrap the timeline envelope", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"timeline": []TimelineEntry{{StepName: "plan", Status: "completed"}},
			})
		}))

		timeline, err := client.GetExecutionTimeline(context.Background(), "req-1")
		require.NoError(t, err)
		require.Len(t, timeline, 1)
		assert.Equal(t, "plan", timeline[0].StepName)
	})

	t.Run("should export raw bytes in the requested format", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "csv", r.URL.Query().Get("format"))
			assert.Equal(t, "true", r.URL.Query().Get("include_input"))
			_, _ = w.Write([]byte("step,status\nplan,completed\n"))
		}))

		data, err := client.ExportExecution(context.Background(), "req-1", ExecutionExportOptions{
			Format:       "csv",
			IncludeInput: true,
		})
		require.NoError(t, err)
		assert.Contains(t, string(data), "plan,completed")
	})

	t.Run("should default the export format to json", func(t *testing.T) {
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "json", r.URL.Query().Get("format"))
			_, _ = w.Write([]byte("{}"))
		}))

		_, err := client.ExportExecution(context.Background(), "req-1", ExecutionExportOptions{})
		require.NoError(t, err)
	})

	t.Run("should delete an execution", func(t *testing.T) {
		var method string
		client := newAPIClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			w.WriteHeader(http.StatusNoContent)
		}))

		require.NoError(t, client.DeleteExecution(context.Background(), "req-1"))
		assert.Equal(t, http.MethodDelete, method)
	})

	t.Run("should require a request id", func(t *testing.T) {
		client := newAPIClient(t, http.NotFoundHandler())
		_, err := client.GetExecution(context.Background(), "")
		assert.True(t, IsValidation(err))
		assert.True(t, IsValidation(client.DeleteExecution(context.Background(), "")))
	})
}
