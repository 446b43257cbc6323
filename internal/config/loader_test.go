package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

func TestLoader(t *testing.T) {
	t.Run("should return defaults when nothing is configured", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, axonflow.ModeProduction, cfg.Mode)
		assert.Equal(t, 60*time.Second, cfg.Timeout)
		assert.True(t, cfg.Retry.Enabled)
		assert.True(t, cfg.Cache.Enabled)
	})

	t.Run("should read environment variables", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("AXONFLOW_AGENT_URL", "http://env-agent:8080")
		t.Setenv("AXONFLOW_MODE", "community")
		t.Setenv("AXONFLOW_DEBUG", "true")
		t.Setenv("AXONFLOW_TIMEOUT", "30s")
		t.Setenv("AXONFLOW_RETRY_MAX_ATTEMPTS", "5")

		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "http://env-agent:8080", cfg.AgentURL)
		assert.Equal(t, axonflow.ModeCommunity, cfg.Mode)
		assert.True(t, cfg.Debug)
		assert.Equal(t, 30*time.Second, cfg.Timeout)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	})

	t.Run("should read a config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
agent_url: http://file-agent:8080
license_key: axf-test-key
timeout: 45s
cache:
  enabled: true
  ttl: 90s
`), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://file-agent:8080", cfg.AgentURL)
		assert.Equal(t, "axf-test-key", cfg.LicenseKey)
		assert.Equal(t, 45*time.Second, cfg.Timeout)
		assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	})

	t.Run("should let the environment override the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("agent_url: http://file-agent:8080\n"), 0o600))
		t.Setenv("AXONFLOW_AGENT_URL", "http://env-agent:8080")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "http://env-agent:8080", cfg.AgentURL)
	})

	t.Run("should fail on an explicitly requested missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("should tolerate a missing default file", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		_, err := Load("")
		assert.NoError(t, err)
	})

	t.Run("should round-trip through Save", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		loader := NewLoader(path)

		want := axonflow.DefaultConfig()
		want.AgentURL = "http://saved-agent:8080"
		want.Mode = axonflow.ModeCommunity
		want.Timeout = 25 * time.Second
		want.Cache.SweepSchedule = "@every 1m"
		require.NoError(t, loader.Save(want))

		got, err := loader.Load()
		require.NoError(t, err)
		assert.Equal(t, want.AgentURL, got.AgentURL)
		assert.Equal(t, want.Mode, got.Mode)
		assert.Equal(t, want.Timeout, got.Timeout)
		assert.Equal(t, want.Cache.SweepSchedule, got.Cache.SweepSchedule)
	})

	t.Run("should prefer an explicit config path", func(t *testing.T) {
		loader := NewLoader("/tmp/custom.yaml")
		assert.Equal(t, "/tmp/custom.yaml", loader.GetConfigPath())
	})

	t.Run("should default the config path to the home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		loader := NewLoader("")
		assert.Equal(t, filepath.Join(home, ".axonflow", "config.yaml"), loader.GetConfigPath())
	})
}

func TestValidator(t *testing.T) {
	validator := NewValidator()

	base := func() axonflow.Config {
		cfg := axonflow.DefaultConfig()
		cfg.AgentURL = "http://localhost:8080"
		return cfg
	}

	t.Run("should accept a valid configuration", func(t *testing.T) {
		assert.NoError(t, validator.Validate(base()))
	})

	t.Run("should reject a non-http scheme", func(t *testing.T) {
		cfg := base()
		cfg.AgentURL = "ftp://localhost:8080"
		assert.Error(t, validator.Validate(cfg))
	})

	t.Run("should reject a URL without a host", func(t *testing.T) {
		assert.Error(t, validator.ValidateURL("http://", "agent_url"))
	})

	t.Run("should reject a malformed license key", func(t *testing.T) {
		cfg := base()
		cfg.LicenseKey = "not-a-license"
		err := validator.Validate(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "axf-")
	})

	t.Run("should accept an axf license key", func(t *testing.T) {
		cfg := base()
		cfg.LicenseKey = "axf-1234"
		assert.NoError(t, validator.Validate(cfg))
	})
}
