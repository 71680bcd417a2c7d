// Package keys hands out API credentials in strict round-robin order.
package keys

import (
	"errors"
	"sync"
)

// ErrEmptyPool is returned when a Rotator is built without credentials
var ErrEmptyPool = errors.New("keys: credential pool is empty")

// Rotator cycles through a fixed pool of credentials.
// Next pops the front key and pushes it to the back under one lock, so
// concurrent callers never observe the same rotation state.
type Rotator struct {
	mu   sync.Mutex
	pool []string
}

// NewRotator seeds a Rotator from keys. The slice is copied.
func NewRotator(keys []string) (*Rotator, error) {
	if len(keys) == 0 {
		return nil, ErrEmptyPool
	}
	pool := make([]string, len(keys))
	copy(pool, keys)
	return &Rotator{pool: pool}, nil
}

// MustNewRotator is NewRotator that panics on an empty pool
func MustNewRotator(keys []string) *Rotator {
	r, err := NewRotator(keys)
	if err != nil {
		panic(err)
	}
	return r
}

// Next returns the credential at the front of the pool and moves it to the back
func (r *Rotator) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.pool[0]
	copy(r.pool, r.pool[1:])
	r.pool[len(r.pool)-1] = key
	return key
}

// Len returns the pool size, which never changes after construction
func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pool)
}
