package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"igaggregator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory Store that round-trips values through JSON
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	closed bool
	sets   int
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memStore) Set(ctx context.Context, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func TestGetOrCompute_ComputesOncePerTTL(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.lru.now = clock.Now

	var calls int32
	compute := func(ctx context.Context) (int, error) {
		return int(atomic.AddInt32(&calls, 1)), nil
	}

	v, err := c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	clock.Advance(time.Minute)
	v, err = c.GetOrCompute(context.Background(), "k", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetOrCompute_DoesNotCacheErrors(t *testing.T) {
	c := New[string]("test", 10, time.Minute, logger.NewNopLogger())
	boom := errors.New("boom")

	_, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestGetOrCompute_SingleFlight(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return 42, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	results := make([]int, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", compute)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, v := range results {
		assert.Equal(t, 42, v)
	}
}

func TestGetOrCompute_DistinctKeys(t *testing.T) {
	c := New[string]("test", 10, time.Minute, logger.NewNopLogger())

	a, _ := c.GetOrCompute(context.Background(), "a", func(ctx context.Context) (string, error) { return "A", nil })
	b, _ := c.GetOrCompute(context.Background(), "b", func(ctx context.Context) (string, error) { return "B", nil })

	assert.Equal(t, "A", a)
	assert.Equal(t, "B", b)
	assert.Equal(t, 2, c.Len())
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetOrCompute_SharedStore(t *testing.T) {
	store := newMemStore()
	first := New[payload]("reports", 10, time.Minute, logger.NewNopLogger()).WithStore(store)

	v, err := first.GetOrCompute(context.Background(), "report:nasa", func(ctx context.Context) (payload, error) {
		return payload{Name: "nasa", Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "nasa", Count: 3}, v)
	assert.Equal(t, 1, store.sets)

	// a second process with a cold local layer is served from the store
	second := New[payload]("reports", 10, time.Minute, logger.NewNopLogger()).WithStore(store)
	v, err = second.GetOrCompute(context.Background(), "report:nasa", func(ctx context.Context) (payload, error) {
		t.Fatal("compute must not run on a shared hit")
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "nasa", Count: 3}, v)
	assert.Equal(t, 1, second.Len())

	require.NoError(t, second.Close())
	assert.True(t, store.closed)
}

func TestGetOrCompute_StoreFailuresAreLogged(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("read down")
	store.setErr = errors.New("write down")
	log := logger.NewTestLogger()
	c := New[int]("test", 10, time.Minute, log).WithStore(store)

	v, err := c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.True(t, log.HasMessage("shared cache read failed"))
	assert.True(t, log.HasMessage("shared cache write failed"))

	// the local layer still serves the value
	v, err = c.GetOrCompute(context.Background(), "k", func(ctx context.Context) (int, error) { return 8, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestClose_WithoutStore(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())
	assert.NoError(t, c.Close())
}

func TestGetOrCompute_CancelledCallerLeavesWaitersUnaffected(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32
	compute := func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		select {
		case <-release:
			return 42, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(first, "k", compute)
		firstErr <- err
	}()
	<-started

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), "k", compute)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, 42, res.v)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never returned")
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestGetOrCompute_CancelledContextSkipsCompute(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	_, err := c.GetOrCompute(ctx, "k", func(ctx context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 1, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGetOrCompute_SweepsExpiredEntriesOnStore(t *testing.T) {
	c := New[int]("test", 10, time.Minute, logger.NewNopLogger())
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.lru.now = clock.Now

	for _, key := range []string{"a", "b"} {
		_, err := c.GetOrCompute(context.Background(), key, func(ctx context.Context) (int, error) { return 1, nil })
		require.NoError(t, err)
	}
	clock.Advance(2 * time.Minute)

	_, err := c.GetOrCompute(context.Background(), "c", func(ctx context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}
