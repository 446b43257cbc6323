package axonflow

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mode selects how the SDK behaves when the governance service is
// degraded. Production mode fails open on an unreachable agent;
// community mode always fails closed.
type Mode string

const (
	ModeCommunity  Mode = "community"
	ModeProduction Mode = "production"
)

// RetryConfig configures retry with exponential backoff.
type RetryConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	MaxAttempts  int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay" mapstructure:"max_delay"`
}

// CacheConfig configures the per-client response cache.
type CacheConfig struct {
	Enabled    bool          `json:"enabled" mapstructure:"enabled"`
	TTL        time.Duration `json:"ttl" mapstructure:"ttl"`
	MaxEntries int           `json:"max_entries" mapstructure:"max_entries"`
	// SweepSchedule is an optional cron spec for a background sweep of
	// expired entries. Empty means lazy eviction only.
	SweepSchedule string `json:"sweep_schedule" mapstructure:"sweep_schedule"`
}

// Config holds client configuration.
//
// ClientID and ClientSecret can be omitted for community/self-hosted
// deployments; the SDK then runs without authentication headers and
// enterprise-only policy decisions are unavailable.
type Config struct {
	AgentURL        string `json:"agent_url" mapstructure:"agent_url"`
	OrchestratorURL string `json:"orchestrator_url" mapstructure:"orchestrator_url"`
	ClientID        string `json:"client_id" mapstructure:"client_id"`
	ClientSecret    string `json:"client_secret" mapstructure:"client_secret"`
	LicenseKey      string `json:"license_key" mapstructure:"license_key"`

	Mode  Mode `json:"mode" mapstructure:"mode"`
	Debug bool `json:"debug" mapstructure:"debug"`

	// Timeout applies to single-call operations. MAPTimeout applies to
	// multi-agent plan operations, which chain several LLM calls.
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MAPTimeout time.Duration `json:"map_timeout" mapstructure:"map_timeout"`

	InsecureSkipVerify bool `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`

	Retry RetryConfig `json:"retry" mapstructure:"retry"`
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// AuditLogPath, when set, writes audit records to a file in
	// addition to the structured log.
	AuditLogPath string `json:"audit_log_path" mapstructure:"audit_log_path"`

	// Logger overrides the default logger. Nil uses a stderr logger at
	// a level derived from Debug.
	Logger *zerolog.Logger `json:"-" mapstructure:"-"`
}

// DefaultConfig returns a config with default values. AgentURL must
// still be set by the caller.
func DefaultConfig() Config {
	return Config{
		Mode:       ModeProduction,
		Timeout:    60 * time.Second,
		MAPTimeout: 120 * time.Second,
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        60 * time.Second,
			MaxEntries: 1000,
		},
	}
}

// HasCredentials reports whether a client credential pair is configured.
// Without credentials the SDK operates in community behavior regardless
// of Mode: enterprise-only decisions auto-resolve.
func (c *Config) HasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Mode == "" {
		c.Mode = def.Mode
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.MAPTimeout <= 0 {
		c.MAPTimeout = def.MAPTimeout
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = def.Retry.MaxAttempts
	}
	if c.Retry.InitialDelay <= 0 {
		c.Retry.InitialDelay = def.Retry.InitialDelay
	}
	if c.Retry.MaxDelay <= 0 {
		c.Retry.MaxDelay = def.Retry.MaxDelay
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = def.Cache.TTL
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = def.Cache.MaxEntries
	}

	c.AgentURL = strings.TrimRight(c.AgentURL, "/")
	c.OrchestratorURL = strings.TrimRight(c.OrchestratorURL, "/")
	if c.OrchestratorURL == "" && c.AgentURL != "" {
		c.OrchestratorURL = deriveOrchestratorURL(c.AgentURL)
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.AgentURL == "" {
		return NewValidationError("agent URL is required")
	}
	if _, err := url.ParseRequestURI(c.AgentURL); err != nil {
		return NewValidationError(fmt.Sprintf("invalid agent URL: %v", err))
	}
	if c.Mode != ModeCommunity && c.Mode != ModeProduction {
		return NewValidationError(fmt.Sprintf("invalid mode: %q", c.Mode))
	}
	if (c.ClientID == "") != (c.ClientSecret == "") {
		return NewValidationError("client_id and client_secret must be set together")
	}
	return nil
}

// deriveOrchestratorURL rewrites the agent URL to the orchestrator's
// default port (8081), where the Execution Replay API lives.
func deriveOrchestratorURL(agentURL string) string {
	u, err := url.Parse(agentURL)
	if err != nil {
		return agentURL
	}
	u.Host = u.Hostname() + ":8081"
	return strings.TrimRight(u.String(), "/")
}
