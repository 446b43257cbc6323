package axonflow

import (
	"context"
	"encoding/json"
	"net/http"
)

// HealthPath is the agent health endpoint.
const HealthPath = "/health"

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthCheck reports whether the agent is reachable and healthy. It
// never returns an error; any failure yields false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	r, err := c.agent.Do(ctx, http.MethodGet, HealthPath, nil, c.config.Timeout)
	if err != nil {
		c.logger.Debug().Err(err).Msg("Health check failed")
		return false
	}
	if r.Status != http.StatusOK {
		return false
	}

	var hr healthResponse
	if err := json.Unmarshal(r.Body, &hr); err != nil {
		return false
	}
	return hr.Status == "healthy"
}
