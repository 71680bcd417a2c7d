package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter paces upstream calls per credential
type Limiter interface {
	// Allow reports whether a call with key may proceed right now
	Allow(key string) bool
	// Wait blocks until a call with key may proceed or ctx is done
	Wait(ctx context.Context, key string) error
	// Reset drops all accumulated state
	Reset()
}

// PerKey keeps one token bucket for each credential so every key stays
// within the upstream's per-key quota independently of the others.
type PerKey struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

// NewPerKey creates a limiter allowing rps requests per second per key, with burst
func NewPerKey(rps float64, burst int) *PerKey {
	if burst <= 0 {
		burst = 1
	}
	return &PerKey{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (p *PerKey) bucket(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, ok := p.buckets[key]
	if !ok {
		b = rate.NewLimiter(p.rps, p.burst)
		p.buckets[key] = b
	}
	return b
}

func (p *PerKey) Allow(key string) bool {
	return p.bucket(key).Allow()
}

func (p *PerKey) Wait(ctx context.Context, key string) error {
	return p.bucket(key).Wait(ctx)
}

func (p *PerKey) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = make(map[string]*rate.Limiter)
}

// Unlimited never blocks; used when pacing is disabled and in tests
type Unlimited struct{}

func (Unlimited) Allow(string) bool                         { return true }
func (Unlimited) Wait(ctx context.Context, _ string) error { return ctx.Err() }
func (Unlimited) Reset()                                   {}
