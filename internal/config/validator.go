package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/getaxonflow/axonflow-go/pkg/axonflow"
)

// Validator validates configuration values beyond the SDK's own
// structural checks.
type Validator struct{}

// NewValidator creates a validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs the SDK validation plus file-level checks.
func (v *Validator) Validate(cfg axonflow.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := v.ValidateURL(cfg.AgentURL, "agent_url"); err != nil {
		return err
	}
	if cfg.OrchestratorURL != "" {
		if err := v.ValidateURL(cfg.OrchestratorURL, "orchestrator_url"); err != nil {
			return err
		}
	}
	if cfg.LicenseKey != "" {
		if err := v.ValidateLicenseKey(cfg.LicenseKey); err != nil {
			return err
		}
	}
	return nil
}

// ValidateURL checks that a URL uses http or https and has a host.
func (v *Validator) ValidateURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s: scheme must be http or https", field)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s: missing host", field)
	}
	return nil
}

// ValidateLicenseKey checks the license key format.
func (v *Validator) ValidateLicenseKey(key string) error {
	if !strings.HasPrefix(key, "axf-") {
		return fmt.Errorf("invalid license key format (should start with axf-)")
	}
	return nil
}
