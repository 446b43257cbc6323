// Package config loads SDK configuration from file and environment.
// Precedence: explicit path, then AXONFLOW_* environment variables,
// then ~/.axonflow/config.yaml, then defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

// EnvPrefix is the environment variable prefix, e.g. AXONFLOW_AGENT_URL.
const EnvPrefix = "AXONFLOW"

// Loader handles configuration loading.
type Loader struct {
	configPath string
}

// NewLoader creates a config loader. An empty path uses the default
// location.
func NewLoader(configPath string) *Loader {
	return &Loader{configPath: configPath}
}

// Load reads the configuration. A missing config file is not an error;
// environment variables and defaults still apply.
func (l *Loader) Load() (axonflow.Config, error) {
	cfg := axonflow.DefaultConfig()

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys must be registered for AutomaticEnv to pick them up during
	// Unmarshal.
	for _, key := range []string{
		"agent_url", "orchestrator_url", "client_id", "client_secret",
		"license_key", "mode", "debug", "timeout", "map_timeout",
		"insecure_skip_verify", "audit_log_path",
		"retry.enabled", "retry.max_attempts", "retry.initial_delay", "retry.max_delay",
		"cache.enabled", "cache.ttl", "cache.max_entries", "cache.sweep_schedule",
	} {
		if err := v.BindEnv(key); err != nil {
			return cfg, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	configPath := l.GetConfigPath()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if l.configPath != "" {
			// An explicitly requested file must exist.
			return cfg, fmt.Errorf("config file not found: %s", configPath)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the config file.
func (l *Loader) Save(cfg axonflow.Config) error {
	configPath := l.GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("cannot determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.Set("agent_url", cfg.AgentURL)
	v.Set("orchestrator_url", cfg.OrchestratorURL)
	v.Set("client_id", cfg.ClientID)
	v.Set("client_secret", cfg.ClientSecret)
	v.Set("license_key", cfg.LicenseKey)
	v.Set("mode", string(cfg.Mode))
	v.Set("debug", cfg.Debug)
	v.Set("timeout", cfg.Timeout.String())
	v.Set("map_timeout", cfg.MAPTimeout.String())
	v.Set("retry", map[string]any{
		"enabled":       cfg.Retry.Enabled,
		"max_attempts":  cfg.Retry.MaxAttempts,
		"initial_delay": cfg.Retry.InitialDelay.String(),
		"max_delay":     cfg.Retry.MaxDelay.String(),
	})
	v.Set("cache", map[string]any{
		"enabled":        cfg.Cache.Enabled,
		"ttl":            cfg.Cache.TTL.String(),
		"max_entries":    cfg.Cache.MaxEntries,
		"sweep_schedule": cfg.Cache.SweepSchedule,
	})

	if err := v.WriteConfig(); err != nil {
		if os.IsNotExist(err) {
			return v.SafeWriteConfig()
		}
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GetConfigPath returns the effective config file path.
func (l *Loader) GetConfigPath() string {
	if l.configPath != "" {
		return l.configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".axonflow", "config.yaml")
}

// Load is a convenience function that creates a loader and loads the
// config.
func Load(configPath string) (axonflow.Config, error) {
	return NewLoader(configPath).Load()
}
