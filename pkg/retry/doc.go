// Package retry re-runs transient upstream failures with backoff.
//
// A Policy with MaxAttempts of 1 (the default) runs the operation once.
// Only errors that errors.IsRetryable accepts are retried; rate limit
// responses wait longer than network and server failures:
//
//	policy := retry.FromConfig(cfg.Retry, log)
//	resp, err := retry.DoWithResult(ctx, policy, func() (*instagram.Response, error) {
//		return doRequest(ctx, url)
//	})
package retry
