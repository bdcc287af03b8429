// Package cacher provides a small read-through cache used to memoize
// classifier responses. Two backends exist: an in-process cache for a single
// server and a Redis-backed cache for sharing results between instances.
package cacher

import (
	"context"
	"time"
)

// FetchFunc fetches a value from the source on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher is a read-through cache. Implementations must be safe for concurrent
// use and should collapse concurrent fetches of the same missing key into a
// single call.
type Cacher[T any] interface {
	// GetOrFetch retrieves the value for key from the cache, or fetches it with
	// fetchFn and stores it with the given TTL. Fetch errors are returned and
	// nothing is cached.
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes a key from the cache. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error

	// Clear removes all items from the cache.
	Clear(ctx context.Context) error
}
