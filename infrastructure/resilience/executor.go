// Package resilience provides resilient execution patterns using fortify.
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
)

// permanentError marks a failure that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps an error so the executor fails immediately instead of
// retrying. Use it for failures that re-running cannot fix, like a
// malformed payload or a missing route.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether the error is marked non-retryable.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ExecutorConfig configures the retry executor.
type ExecutorConfig struct {
	// MaxAttempts is the total number of attempts, first try included.
	MaxAttempts int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
}

// DefaultExecutorConfig returns a configuration with sensible defaults.
func DefaultExecutorConfig() ExecutorConfig {
	return ExecutorConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
	}
}

// Executor retries transient failures with exponential backoff.
// Permanent failures short-circuit: the wrapped error comes back after
// a single attempt.
type Executor struct {
	retry retry.Retry[struct{}]
}

// NewExecutor creates a retry executor.
func NewExecutor(config ExecutorConfig) *Executor {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultExecutorConfig().MaxAttempts
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultExecutorConfig().InitialDelay
	}
	if config.Multiplier < 1 {
		config.Multiplier = DefaultExecutorConfig().Multiplier
	}

	return &Executor{
		retry: retry.New[struct{}](retry.Config{
			MaxAttempts:   config.MaxAttempts,
			InitialDelay:  config.InitialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Multiplier:    config.Multiplier,
		}),
	}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(DefaultExecutorConfig())
}

// Do runs fn under the retry policy. A permanent error stops the loop
// on the attempt that produced it.
func (e *Executor) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var permanent error
	_, err := e.retry.Do(ctx, func(ctx context.Context) (struct{}, error) {
		err := fn(ctx)
		if err != nil && IsPermanent(err) {
			// Returning nil stops the retry loop; the captured error is
			// surfaced below.
			permanent = err
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if permanent != nil {
		return permanent
	}
	return err
}
