package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("connection reset")

func transientOnly(err error) bool {
	return errors.Is(err, errTransient)
}

func TestRetryExecute(t *testing.T) {
	t.Run("should return immediately on success", func(t *testing.T) {
		r := New(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}, zerolog.Nop())

		calls := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("should retry transient failures up to max attempts", func(t *testing.T) {
		r := New(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			RetryIf:      transientOnly,
		}, zerolog.Nop())

		calls := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			calls++
			return errTransient
		})

		assert.ErrorIs(t, err, errTransient)
		assert.Equal(t, 3, calls)
	})

	t.Run("should succeed after transient failures", func(t *testing.T) {
		r := New(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			RetryIf:      transientOnly,
		}, zerolog.Nop())

		calls := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("should not retry non-retryable errors", func(t *testing.T) {
		fatal := errors.New("policy violation")
		r := New(RetryConfig{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			RetryIf:      transientOnly,
		}, zerolog.Nop())

		calls := 0
		err := r.Execute(context.Background(), func(ctx context.Context) error {
			calls++
			return fatal
		})

		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, calls)
	})

	t.Run("should call OnRetry before each wait", func(t *testing.T) {
		var attempts []int
		r := New(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			RetryIf:      transientOnly,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				attempts = append(attempts, attempt)
			},
		}, zerolog.Nop())

		_ = r.Execute(context.Background(), func(ctx context.Context) error {
			return errTransient
		})

		// Two waits between three attempts.
		assert.Equal(t, []int{1, 2}, attempts)
	})

	t.Run("should grow delays exponentially", func(t *testing.T) {
		var delays []time.Duration
		r := New(RetryConfig{
			MaxAttempts:  4,
			InitialDelay: 20 * time.Millisecond,
			RetryIf:      transientOnly,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				delays = append(delays, delay)
			},
		}, zerolog.Nop())

		_ = r.Execute(context.Background(), func(ctx context.Context) error {
			return errTransient
		})

		require.Len(t, delays, 3)
		// InitialDelay * 2^(k-1), jitter bounded at +-25%.
		assert.InDelta(t, float64(20*time.Millisecond), float64(delays[0]), float64(5*time.Millisecond))
		assert.InDelta(t, float64(40*time.Millisecond), float64(delays[1]), float64(10*time.Millisecond))
		assert.InDelta(t, float64(80*time.Millisecond), float64(delays[2]), float64(20*time.Millisecond))
	})

	t.Run("should stop a pending wait on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := New(RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Second,
			RetryIf:      transientOnly,
		}, zerolog.Nop())

		done := make(chan error, 1)
		go func() {
			done <- r.Execute(ctx, func(ctx context.Context) error {
				return errTransient
			})
		}()

		time.Sleep(10 * time.Millisecond)
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("retry wait did not abort on cancellation")
		}
	})

	t.Run("should surface deadline exceeded during wait", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		r := New(RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 10 * time.Second,
			RetryIf:      transientOnly,
		}, zerolog.Nop())

		err := r.Execute(ctx, func(ctx context.Context) error {
			return errTransient
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestRetryDefaults(t *testing.T) {
	t.Run("should apply defaults for zero config", func(t *testing.T) {
		r := New(RetryConfig{}, zerolog.Nop())

		cfg := r.Config()
		assert.Equal(t, 3, cfg.MaxAttempts)
		assert.Equal(t, time.Second, cfg.InitialDelay)
		assert.Equal(t, 30*time.Second, cfg.MaxDelay)
		assert.NotNil(t, cfg.RetryIf)
	})
}
