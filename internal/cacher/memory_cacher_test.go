package cacher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacher_GetOrFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and caches", func(t *testing.T) {
		c := NewMemoryCacher[string](time.Minute, time.Minute)
		calls := 0
		fetch := func(ctx context.Context) (string, error) {
			calls++
			return "value", nil
		}

		v, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
		assert.Equal(t, 1, calls)

		v, err = c.GetOrFetch(ctx, "k", time.Minute, fetch)
		require.NoError(t, err)
		assert.Equal(t, "value", v)
		assert.Equal(t, 1, calls, "second call must be a cache hit")
	})

	t.Run("fetch error is not cached", func(t *testing.T) {
		c := NewMemoryCacher[string](time.Minute, time.Minute)
		calls := 0
		failing := func(ctx context.Context) (string, error) {
			calls++
			return "", errors.New("boom")
		}

		_, err := c.GetOrFetch(ctx, "k", time.Minute, failing)
		assert.Error(t, err)

		v, err := c.GetOrFetch(ctx, "k", time.Minute, func(ctx context.Context) (string, error) {
			return "recovered", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "recovered", v)
		assert.Equal(t, 1, calls)
	})

	t.Run("concurrent misses collapse into one fetch", func(t *testing.T) {
		c := NewMemoryCacher[int](time.Minute, time.Minute)
		var calls atomic.Int32
		fetch := func(ctx context.Context) (int, error) {
			calls.Add(1)
			time.Sleep(20 * time.Millisecond)
			return 42, nil
		}

		const goroutines = 20
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for n := 0; n < goroutines; n++ {
			go func() {
				defer wg.Done()
				v, err := c.GetOrFetch(ctx, "shared", time.Minute, fetch)
				assert.NoError(t, err)
				assert.Equal(t, 42, v)
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestMemoryCacher_Delete(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[string](time.Minute, time.Minute)
	calls := 0
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "v", nil
	}

	_, err := c.GetOrFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	require.NoError(t, c.Delete(ctx, "k"))

	_, err = c.GetOrFetch(ctx, "k", time.Minute, fetch)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestMemoryCacher_Clear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCacher[int](time.Minute, time.Minute)
	for _, key := range []string{"a", "b", "c"} {
		_, err := c.GetOrFetch(ctx, key, time.Minute, func(ctx context.Context) (int, error) {
			return 1, nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, c.Clear(ctx))

	calls := 0
	_, err := c.GetOrFetch(ctx, "a", time.Minute, func(ctx context.Context) (int, error) {
		calls++
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
