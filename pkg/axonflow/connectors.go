package axonflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getaxonflow/axonflow-go/internal/transport"
)

// ConnectorsPath is the agent endpoint for MCP connector management.
const ConnectorsPath = "/api/v1/connectors"

// ListConnectors returns the connectors known to the agent, including
// install and health state.
func (c *Client) ListConnectors(ctx context.Context) ([]Connector, error) {
	r, err := c.agent.Do(ctx, http.MethodGet, ConnectorsPath, nil, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("connector listing timed out", err)
		}
		return nil, NewNetworkError("connector listing failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}

	var connectors []Connector
	if err := json.Unmarshal(r.Body, &connectors); err != nil {
		// Some agent versions wrap the list.
		var wrapped struct {
			Connectors []Connector `json:"connectors"`
		}
		if err := json.Unmarshal(r.Body, &wrapped); err != nil {
			return nil, NewAPIError(fmt.Sprintf("malformed connector response: %v", err), r.Status)
		}
		connectors = wrapped.Connectors
	}
	return connectors, nil
}

// InstallConnector installs an MCP connector. Installation is not
// idempotent, so it is never retried; a transient failure surfaces
// immediately and the caller decides whether to re-issue.
func (c *Client) InstallConnector(ctx context.Context, req ConnectorInstallRequest) (*ConnectorResponse, error) {
	if req.ConnectorID == "" {
		return nil, NewValidationError("connector_id is required")
	}

	path := fmt.Sprintf("%s/%s/install", ConnectorsPath, req.ConnectorID)
	r, err := c.agent.Do(ctx, http.MethodPost, path, req, c.config.Timeout)
	if err != nil {
		if transport.IsTimeout(err) {
			return nil, NewTimeoutError("connector install timed out", err)
		}
		return nil, NewNetworkError("connector install failed", err)
	}
	if r.Status < 200 || r.Status >= 300 {
		return nil, ErrorFromStatus(r.Status, r.Body)
	}

	var result ConnectorResponse
	if err := json.Unmarshal(r.Body, &result); err != nil {
		return nil, NewAPIError(fmt.Sprintf("malformed connector response: %v", err), r.Status)
	}
	return &result, nil
}

// QueryConnector runs a query against an installed connector.
func (c *Client) QueryConnector(ctx context.Context, connectorID string, query map[string]any) (*ConnectorResponse, error) {
	if connectorID == "" {
		return nil, NewValidationError("connector_id is required")
	}

	path := fmt.Sprintf("%s/%s/query", ConnectorsPath, connectorID)
	var result *ConnectorResponse
	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		r, err := c.agent.Do(ctx, http.MethodPost, path, query, c.config.Timeout)
		if err != nil {
			if transport.IsTimeout(err) {
				return NewTimeoutError("connector query timed out", err)
			}
			return NewNetworkError("connector query failed", err)
		}
		if r.Status < 200 || r.Status >= 300 {
			return ErrorFromStatus(r.Status, r.Body)
		}

		var cr ConnectorResponse
		if err := json.Unmarshal(r.Body, &cr); err != nil {
			return NewAPIError(fmt.Sprintf("malformed connector response: %v", err), r.Status)
		}
		result = &cr
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
