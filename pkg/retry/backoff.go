package retry

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"time"

	errs "igaggregator/pkg/errors"
)

// BackoffStrategy computes the delay before a retry
type BackoffStrategy interface {
	// NextDelay returns the delay after the given failed attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// ErrorTypeBackoff picks a strategy from the failure's error type
type ErrorTypeBackoff struct {
	NetworkErrorBackoff BackoffStrategy
	RateLimitBackoff    BackoffStrategy
	ServerErrorBackoff  BackoffStrategy
	DefaultBackoff      BackoffStrategy
}

// NewErrorTypeBackoff derives per-type strategies from one base delay.
// Rate limit responses start at four times the base.
func NewErrorTypeBackoff(base, maxDelay time.Duration) *ErrorTypeBackoff {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if maxDelay < base {
		maxDelay = 20 * base
	}
	return &ErrorTypeBackoff{
		NetworkErrorBackoff: &ExponentialBackoff{BaseDelay: base, MaxDelay: maxDelay, Multiplier: 2.0, JitterFactor: 0.2},
		RateLimitBackoff:    &ExponentialBackoff{BaseDelay: 4 * base, MaxDelay: maxDelay, Multiplier: 1.5, JitterFactor: 0.3},
		ServerErrorBackoff:  &ExponentialBackoff{BaseDelay: 2 * base, MaxDelay: maxDelay, Multiplier: 2.0, JitterFactor: 0.1},
		DefaultBackoff:      &ExponentialBackoff{BaseDelay: base, MaxDelay: maxDelay, Multiplier: 2.0, JitterFactor: 0.1},
	}
}

// NextDelay uses the default strategy
func (etb *ErrorTypeBackoff) NextDelay(attempt int) time.Duration {
	return etb.DefaultBackoff.NextDelay(attempt)
}

// ForError returns the strategy for err
func (etb *ErrorTypeBackoff) ForError(err error) BackoffStrategy {
	var apiErr *errs.Error
	if !stderrors.As(err, &apiErr) {
		return etb.DefaultBackoff
	}
	switch apiErr.Type {
	case errs.ErrorTypeNetwork:
		return etb.NetworkErrorBackoff
	case errs.ErrorTypeRateLimit:
		return etb.RateLimitBackoff
	case errs.ErrorTypeServerError:
		return etb.ServerErrorBackoff
	default:
		return etb.DefaultBackoff
	}
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
