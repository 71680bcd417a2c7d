// Package logger provides the structured logging interface used across the
// aggregator. It wraps zerolog behind a small Logger interface so components
// can take an injected logger and tests can swap in NewTestLogger or
// NewNopLogger.
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.ForComponent("analyzer").WithField("username", "nasa")
//	log.InfoWithFields("analysis finished", map[string]interface{}{
//	    "posts": 42,
//	})
//
// Upstream calls are recorded through LogUpstreamRequest, which masks the
// API key before it reaches the log.
package logger
