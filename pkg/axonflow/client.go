// Package axonflow is the AxonFlow client SDK. It executes LLM-bound
// queries through a governed pipeline: response cache, policy pre-check,
// retried transport call, policy post-check, and audit, in that order.
package axonflow

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/getaxonflow/axonflow-go/internal/cache"
	"github.com/getaxonflow/axonflow-go/internal/logger"
	"github.com/getaxonflow/axonflow-go/internal/observability"
	"github.com/getaxonflow/axonflow-go/internal/resilience"
	"github.com/getaxonflow/axonflow-go/internal/transport"
	"github.com/getaxonflow/axonflow-go/pkg/executor"
	"github.com/getaxonflow/axonflow-go/pkg/policy"
)

// Client is the AxonFlow SDK client. One client owns one cache, one
// execution core, and one metrics registry; clients share nothing.
type Client struct {
	config Config
	logger zerolog.Logger

	agent transport.Doer
	orch  transport.Doer

	cache   cache.Cache
	janitor *cache.Janitor
	gate    *policy.Gate
	retry   *resilience.Retry
	core    *executor.Core
	bridge  *executor.Bridge
	audit   *observability.AuditLogger
	metrics *observability.Metrics

	closed bool
}

// New creates a client. AgentURL is required; all other fields default
// per DefaultConfig.
func New(cfg Config) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var log zerolog.Logger
	if cfg.Logger != nil {
		log = *cfg.Logger
	} else {
		level := "info"
		if cfg.Debug {
			level = "debug"
		}
		log = logger.New(logger.Config{Level: level, Redaction: true, Writer: os.Stderr})
	}
	log = log.With().Str("component", "axonflow").Logger()

	creds := transport.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		LicenseKey:   cfg.LicenseKey,
	}
	var topts []transport.Option
	if cfg.InsecureSkipVerify {
		topts = append(topts, transport.WithInsecureSkipVerify())
	}

	c := &Client{
		config:  cfg,
		logger:  log,
		agent:   transport.New(cfg.AgentURL, creds, log, topts...),
		orch:    transport.New(cfg.OrchestratorURL, creds, log, topts...),
		metrics: observability.NewMetrics(),
	}

	if cfg.AuditLogPath != "" {
		audit, err := observability.NewAuditFileLogger(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		c.audit = audit
	} else {
		c.audit = observability.NewAuditLogger(log)
	}

	if cfg.Cache.Enabled {
		mem := cache.NewMemory(cfg.Cache.MaxEntries)
		c.cache = mem
		if cfg.Cache.SweepSchedule != "" {
			janitor, err := cache.NewJanitor(mem, cfg.Cache.SweepSchedule, log)
			if err != nil {
				return nil, fmt.Errorf("invalid cache sweep schedule: %w", err)
			}
			janitor.Start()
			c.janitor = janitor
		}
	}

	c.gate = policy.NewGate(policy.GateConfig{
		Transport:   c.agent,
		Credentials: policy.CredentialContextFunc(cfg.HasCredentials),
		FailOpen:    cfg.Mode == ModeProduction,
		Timeout:     cfg.Timeout,
		Audit:       c.audit,
		Metrics:     c.metrics,
		Logger:      log,
	})

	maxAttempts := cfg.Retry.MaxAttempts
	if !cfg.Retry.Enabled {
		maxAttempts = 1
	}
	c.retry = resilience.New(resilience.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		MaxDelay:     cfg.Retry.MaxDelay,
		RetryIf:      IsRetryable,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			c.metrics.RetryAttempts.Inc()
		},
	}, log)

	c.core = executor.NewCore(executor.Config{Logger: log})
	c.bridge = executor.NewBridge(c.core)

	log.Debug().
		Str("agent_url", cfg.AgentURL).
		Str("orchestrator_url", cfg.OrchestratorURL).
		Str("mode", string(cfg.Mode)).
		Bool("credentials", cfg.HasCredentials()).
		Msg("AxonFlow client created")
	return c, nil
}

// Close releases the client's resources: stops the cache janitor,
// drains the execution core, and closes the audit sink. The client must
// not be used after Close.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	if c.janitor != nil {
		c.janitor.Stop()
	}
	if c.cache != nil {
		c.cache.Purge()
	}
	c.core.Close()
	return c.audit.Close()
}

// Gate exposes the client's policy gate for use with the interceptor
// framework.
func (c *Client) Gate() *policy.Gate {
	return c.gate
}

// Audit exposes the client's audit logger.
func (c *Client) Audit() *observability.AuditLogger {
	return c.audit
}

// MetricsHandler returns an HTTP handler exposing this client's
// Prometheus metrics.
func (c *Client) MetricsHandler() http.Handler {
	return c.metrics.Handler()
}

// Config returns a copy of the effective configuration.
func (c *Client) Config() Config {
	return c.config
}
