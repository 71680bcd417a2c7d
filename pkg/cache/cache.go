// Package cache memoizes completed analyses and selected sub-results.
//
// Cache layers an in-process LRU with a fixed TTL over an optional shared
// Store (Redis). Concurrent GetOrCompute calls for the same key share one
// computation. Failed computations are never cached.
package cache

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
	"igaggregator/pkg/logger"
	"igaggregator/pkg/metrics"
)

// Store is a second-level cache shared between processes
type Store interface {
	// Get decodes the value stored under key into dest, reporting whether it
	// was present
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Close() error
}

// Cache is a named get-or-compute cache
type Cache[V any] struct {
	name   string
	lru    *LRU[V]
	group  singleflight.Group
	store  Store
	logger logger.Logger
}

// New creates a Cache holding up to capacity values for ttl each
func New[V any](name string, capacity int, ttl time.Duration, log logger.Logger) *Cache[V] {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cache[V]{
		name:   name,
		lru:    NewLRU[V](capacity, ttl),
		logger: log.WithFields(map[string]interface{}{"component": "cache", "cache": name}),
	}
}

// WithStore adds a second-level store consulted on local misses
func (c *Cache[V]) WithStore(s Store) *Cache[V] {
	c.store = s
	return c
}

// GetOrCompute returns the cached value for key, or runs compute once and
// caches its result. Callers arriving while a computation for key is in
// flight share its outcome.
//
// The shared computation is detached from every caller's cancellation, and
// each caller stops waiting when its own ctx is done. A cancelled caller
// therefore never fails the others.
func (c *Cache[V]) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok := c.lru.Get(key); ok {
		metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, ok := c.lru.Get(key); ok {
			metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
			return v, nil
		}

		if v, ok := c.loadShared(shared, key); ok {
			metrics.CacheRequests.WithLabelValues(c.name, "shared_hit").Inc()
			c.put(key, v)
			return v, nil
		}

		metrics.CacheRequests.WithLabelValues(c.name, "miss").Inc()
		v, err := compute(shared)
		if err != nil {
			return v, err
		}
		c.put(key, v)
		c.saveShared(shared, key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		v, _ := res.Val.(V)
		if res.Err != nil {
			return v, fmt.Errorf("cache %s: compute %q: %w", c.name, key, res.Err)
		}
		return v, nil
	}
}

// put sweeps expired entries, inserts v and publishes the entry count
func (c *Cache[V]) put(key string, v V) {
	if n := c.lru.CleanupExpired(); n > 0 {
		metrics.CacheExpired.WithLabelValues(c.name).Add(float64(n))
	}
	c.lru.Set(key, v)
	metrics.CacheEntries.WithLabelValues(c.name).Set(float64(c.lru.Len()))
}

// Len returns the number of locally cached entries
func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

// Close releases the shared store, if any
func (c *Cache[V]) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache[V]) loadShared(ctx context.Context, key string) (V, bool) {
	var v V
	if c.store == nil {
		return v, false
	}
	found, err := c.store.Get(ctx, key, &v)
	if err != nil {
		c.logger.WarnWithFields("shared cache read failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return v, false
	}
	return v, found
}

func (c *Cache[V]) saveShared(ctx context.Context, key string, v V) {
	if c.store == nil {
		return
	}
	if err := c.store.Set(ctx, key, v); err != nil {
		c.logger.WarnWithFields("shared cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
