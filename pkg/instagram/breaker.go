package instagram

import (
	stderrors "errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"igaggregator/pkg/config"
	"igaggregator/pkg/errors"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
)

func newBreaker(name string, cfg config.BreakerConfig, log logger.Logger) *gobreaker.CircuitBreaker[*Response] {
	minRequests := cfg.MinRequests
	if minRequests == 0 {
		minRequests = 10
	}
	timeout := cfg.OpenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		// Client errors such as 404 say nothing about upstream health
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var apiErr *errors.Error
			if stderrors.As(err, &apiErr) {
				return !errors.IsRetryable(apiErr.Type)
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WarnWithFields("circuit breaker state change", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
