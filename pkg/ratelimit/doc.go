// Package ratelimit paces calls to the upstream data API.
//
// PerKey keeps an independent golang.org/x/time/rate token bucket for every
// API credential, so a pool of N keys can issue roughly N times the per-key
// quota:
//
//	limiter := ratelimit.NewPerKey(10, 10)
//	if err := limiter.Wait(ctx, key); err != nil {
//	    return err
//	}
package ratelimit
