package analyzer

import (
	"fmt"

	"igaggregator/pkg/cache"
	"igaggregator/pkg/collector"
	"igaggregator/pkg/config"
	"igaggregator/pkg/instagram"
	"igaggregator/pkg/keys"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/models"
	"igaggregator/pkg/ratelimit"
	"igaggregator/pkg/retry"
)

// New wires a complete Analyzer from configuration: key rotator, request
// executor with pacing and circuit breaker, stream collectors, and the
// report and count caches. An unreachable Redis is logged and the shared
// cache layer is skipped.
func New(cfg *config.Config, log logger.Logger) (*Analyzer, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	rotator, err := keys.NewRotator(cfg.Keys)
	if err != nil {
		return nil, fmt.Errorf("failed to create key rotator: %w", err)
	}

	client := instagram.NewClient(cfg.API, rotator, log)
	if cfg.RateLimit.RequestsPerSecond > 0 {
		client.SetLimiter(ratelimit.NewPerKey(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	}
	client.EnableBreaker(cfg.Breaker)
	client.SetRetry(retry.FromConfig(cfg.Retry, log))

	streams := collector.New(client, cfg.Analysis, cfg.API.PageSize, log)
	counts := cache.New[int]("counts", cfg.Cache.Capacity, cfg.Cache.TTL, log)
	streams.SetCountCache(counts)

	a := NewAnalyzer(client, streams, log)
	reports := cache.New[models.ProfileReport]("reports", cfg.Cache.Capacity, cfg.Cache.TTL, log)

	if cfg.Cache.RedisAddr != "" {
		store, err := cache.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, cfg.Cache.TTL)
		if err != nil {
			log.WarnWithFields("shared report cache disabled", map[string]interface{}{
				"redis": cfg.Cache.RedisAddr,
				"error": err.Error(),
			})
		} else {
			reports.WithStore(store)
		}
	}

	a.SetReportCache(reports)
	a.closers = append(a.closers, reports.Close, counts.Close)

	log.InfoWithFields("analyzer ready", map[string]interface{}{
		"keys":      rotator.Len(),
		"page_size": cfg.API.PageSize,
		"breaker":   cfg.Breaker.Enabled,
		"retries":   cfg.Retry.MaxAttempts,
	})
	return a, nil
}
