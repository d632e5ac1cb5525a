package workingset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeFetcher struct {
	mu      sync.Mutex
	payload string
	err     error
	calls   int
}

func (f *fakeFetcher) Fetch(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload), nil
}

type memoryCache struct {
	payload []byte
	getErr  error
	sets    int
}

func (c *memoryCache) Get(context.Context) ([]byte, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	return c.payload, c.payload != nil, nil
}

func (c *memoryCache) Set(_ context.Context, payload []byte) error {
	c.payload = payload
	c.sets++
	return nil
}

func (c *memoryCache) Invalidate(context.Context) error {
	c.payload = nil
	return nil
}

type recorder struct {
	refreshes []string
	hits      int
	misses    int
	records   int
}

func (r *recorder) RecordRefresh(origin string, _ time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.refreshes = append(r.refreshes, origin+":"+result)
}

func (r *recorder) RecordCacheLookup(hit bool) {
	if hit {
		r.hits++
	} else {
		r.misses++
	}
}

func (r *recorder) SetWorkingSet(records int, _ time.Time) { r.records = records }

func TestStoreRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetches And Caches On Miss", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `[{"id": 1}, {"id": 2}]`}
		c := &memoryCache{}
		rec := &recorder{}
		store := NewStore(fetcher, c, rec, time.UTC, zap.NewNop())

		assert.False(t, store.Loaded())

		snap, err := store.Refresh(ctx, OriginStartup, false)
		require.NoError(t, err)

		assert.Len(t, snap.Records, 2)
		assert.False(t, snap.FromCache)
		assert.True(t, store.Loaded())
		assert.Equal(t, 1, fetcher.calls)
		assert.Equal(t, 1, c.sets)
		assert.Equal(t, []string{"startup:ok"}, rec.refreshes)
		assert.Equal(t, 1, rec.misses)
		assert.Equal(t, 2, rec.records)
	})

	t.Run("Uses Cache Unless Forced", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `[{"id": 1}]`}
		c := &memoryCache{payload: []byte(`{"data": [{"id": 7}, {"id": 8}, {"id": 9}]}`)}
		store := NewStore(fetcher, c, nil, time.UTC, zap.NewNop())

		snap, err := store.Refresh(ctx, OriginSchedule, false)
		require.NoError(t, err)
		assert.True(t, snap.FromCache)
		assert.Len(t, snap.Records, 3)
		assert.Equal(t, 0, fetcher.calls)

		snap, err = store.Refresh(ctx, OriginManual, true)
		require.NoError(t, err)
		assert.False(t, snap.FromCache)
		assert.Len(t, snap.Records, 1)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("Cache Failure Falls Back To Backend", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `[{"id": 1}]`}
		c := &memoryCache{getErr: errors.New("redis unavailable")}
		store := NewStore(fetcher, c, nil, time.UTC, zap.NewNop())

		snap, err := store.Refresh(ctx, OriginStartup, false)
		require.NoError(t, err)
		assert.Len(t, snap.Records, 1)
	})

	t.Run("Undecodable Cache Entry Is Ignored", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `[{"id": 1}]`}
		c := &memoryCache{payload: []byte(`{"broken"`)}
		store := NewStore(fetcher, c, nil, time.UTC, zap.NewNop())

		snap, err := store.Refresh(ctx, OriginStartup, false)
		require.NoError(t, err)
		assert.False(t, snap.FromCache)
		assert.Equal(t, 1, fetcher.calls)
	})

	t.Run("Failure Keeps Previous Snapshot", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `[{"id": 1}, {"id": 2}]`}
		rec := &recorder{}
		store := NewStore(fetcher, nil, rec, time.UTC, zap.NewNop())

		_, err := store.Refresh(ctx, OriginStartup, true)
		require.NoError(t, err)

		fetcher.err = errors.New("backend unavailable")
		snap, err := store.Refresh(ctx, OriginSchedule, true)
		require.Error(t, err)
		assert.Len(t, snap.Records, 2)
		assert.Len(t, store.Snapshot().Records, 2)
		assert.Equal(t, []string{"startup:ok", "schedule:error"}, rec.refreshes)
	})

	t.Run("Bad Payload Is An Error", func(t *testing.T) {
		fetcher := &fakeFetcher{payload: `{"detail": "not found"}`}
		store := NewStore(fetcher, nil, nil, time.UTC, zap.NewNop())

		_, err := store.Refresh(ctx, OriginStartup, true)
		assert.Error(t, err)
		assert.False(t, store.Loaded())
	})
}

func TestStoreListeners(t *testing.T) {
	fetcher := &fakeFetcher{payload: `[{"id": 1}]`}
	store := NewStore(fetcher, nil, nil, time.UTC, zap.NewNop())

	var got []int
	store.OnRefresh(func(s Snapshot) { got = append(got, len(s.Records)) })

	_, err := store.Refresh(context.Background(), OriginStartup, true)
	require.NoError(t, err)

	fetcher.err = errors.New("down")
	_, _ = store.Refresh(context.Background(), OriginSchedule, true)

	assert.Equal(t, []int{1}, got)
}

func TestStoreInvalidate(t *testing.T) {
	c := &memoryCache{payload: []byte(`[{"id": 1}]`)}
	store := NewStore(&fakeFetcher{payload: `[]`}, c, nil, time.UTC, zap.NewNop())

	require.NoError(t, store.Invalidate(context.Background()))
	assert.Nil(t, c.payload)
}

func TestStoreConcurrentRefresh(t *testing.T) {
	fetcher := &fakeFetcher{payload: `[{"id": 1}, {"id": 2}, {"id": 3}]`}
	store := NewStore(fetcher, nil, nil, time.UTC, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = store.Refresh(context.Background(), OriginEvent, true)
		}()
		go func() {
			defer wg.Done()
			snap := store.Snapshot()
			assert.True(t, len(snap.Records) == 0 || len(snap.Records) == 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, fetcher.calls)
	assert.Len(t, store.Snapshot().Records, 3)
}
