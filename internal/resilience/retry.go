// Package resilience wraps fallible network operations with bounded
// exponential backoff. Classification of retryable vs fatal errors is
// supplied by the caller; the policy itself cannot infer idempotence or
// error semantics from the operation.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryConfig configures the retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Default: 3.
	MaxAttempts int

	// InitialDelay is the delay before the first retry. Subsequent
	// delays double. Default: 1s.
	InitialDelay time.Duration

	// MaxDelay caps the delay between attempts. Default: 30s.
	MaxDelay time.Duration

	// RetryIf classifies an error as retryable. Nil retries every
	// non-nil error.
	RetryIf func(err error) bool

	// OnRetry is called before each retry wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry executes operations with exponential backoff.
type Retry struct {
	config RetryConfig
	logger zerolog.Logger
}

// New creates a retry handler, applying defaults for zero fields.
func New(config RetryConfig, logger zerolog.Logger) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{
		config: config,
		logger: logger.With().Str("component", "retry").Logger(),
	}
}

// Execute runs op, retrying retryable failures with backoff. The delay
// before attempt k+1 is InitialDelay * 2^(k-1) plus jitter, capped at
// MaxDelay. Context cancellation aborts any pending wait immediately.
// After MaxAttempts the last error is surfaced.
func (r *Retry) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.config.InitialDelay
	b.MaxInterval = r.config.MaxDelay
	b.Multiplier = 2.0
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0 // bounded by attempts and context, not wall time

	attempt := 0
	wrapped := func() error {
		attempt++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !r.config.RetryIf(err) {
			return backoff.Permanent(err)
		}
		if attempt >= r.config.MaxAttempts {
			// Attempts exhausted; stop without another wait.
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		r.logger.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Retrying after transient failure")
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
	}

	err := backoff.RetryNotify(wrapped, backoff.WithContext(b, ctx), notify)
	if err == nil {
		return nil
	}

	// A context error from the wait means cancellation or deadline, not
	// an operation failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	return err
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
