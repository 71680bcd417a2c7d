package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"igaggregator/pkg/config"
	errs "igaggregator/pkg/errors"
	"igaggregator/pkg/logger"
)

// Operation is a function that might need retrying
type Operation func() error

// OperationWithResult returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Policy holds retry configuration
type Policy struct {
	// MaxAttempts counts the first try; values below 1 mean 1
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// Once runs every operation a single time
func Once() *Policy {
	return &Policy{MaxAttempts: 1}
}

// FromConfig builds a policy with error-type backoff
func FromConfig(cfg config.RetryConfig, log logger.Logger) *Policy {
	return &Policy{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     NewErrorTypeBackoff(cfg.BaseDelay, cfg.MaxDelay),
		RetryIf:     DefaultRetryIf,
		Logger:      log,
	}
}

// DefaultRetryIf retries retryable API errors and nothing else
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}
	return false
}

// Do executes op until it succeeds, fails permanently, runs out of
// attempts or ctx ends
func Do(ctx context.Context, p *Policy, op Operation) error {
	if p == nil {
		p = Once()
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}

	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 1 && p.Logger != nil {
				p.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}

		if !retryIf(err) {
			return err
		}
		if attempt >= maxAttempts {
			if maxAttempts == 1 {
				return err
			}
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", maxAttempts, err)
		}

		strategy := backoff
		if typed, ok := backoff.(*ErrorTypeBackoff); ok {
			strategy = typed.ForError(err)
		}
		delay := strategy.NextDelay(attempt)

		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if p.Logger != nil {
			p.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":      attempt,
				"error":        err.Error(),
				"delay_ms":     delay.Milliseconds(),
				"max_attempts": maxAttempts,
			})
		}

		if werr := Wait(ctx, delay); werr != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](ctx context.Context, p *Policy, op OperationWithResult[T]) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})
	return result, err
}
