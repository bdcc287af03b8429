package cacher

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// MemoryCacher is an in-memory implementation of the Cacher interface.
// It uses go-cache for storage and singleflight so that concurrent misses on
// the same key result in a single fetch.
type MemoryCacher[T any] struct {
	cache *cache.Cache
	group singleflight.Group
}

// NewMemoryCacher creates an in-memory cache with the given default expiration
// and cleanup interval.
func NewMemoryCacher[T any](defaultExpiration, cleanupInterval time.Duration) Cacher[T] {
	return &MemoryCacher[T]{
		cache: cache.New(defaultExpiration, cleanupInterval),
	}
}

// GetOrFetch implements Cacher.
func (c *MemoryCacher[T]) GetOrFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFn FetchFunc[T],
) (T, error) {
	var zero T

	if val, found := c.cache.Get(key); found {
		if typedVal, ok := val.(T); ok {
			return typedVal, nil
		}
	}

	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Another goroutine may have populated the cache while we waited for
		// the singleflight slot.
		if cachedVal, found := c.cache.Get(key); found {
			if typedVal, ok := cachedVal.(T); ok {
				return typedVal, nil
			}
		}

		fetched, err := fetchFn(ctx)
		if err != nil {
			return zero, err
		}

		c.cache.Set(key, fetched, ttl)
		return fetched, nil
	})
	if err != nil {
		return zero, fmt.Errorf("fetch for key %q failed: %w", key, err)
	}

	typedVal, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("cached value for key %q has unexpected type", key)
	}

	return typedVal, nil
}

// Delete implements Cacher.
func (c *MemoryCacher[T]) Delete(ctx context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

// Clear implements Cacher.
func (c *MemoryCacher[T]) Clear(ctx context.Context) error {
	c.cache.Flush()
	return nil
}
