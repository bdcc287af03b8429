package cacher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCacher is a Redis-based implementation of the Cacher interface.
// Values are stored as JSON. A short-lived lock key limits how many instances
// fetch the same missing entry at once; lock losers poll for the winner's
// result and fall back to fetching directly if it never appears.
type redisCacher[T any] struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisCacher creates a Redis-backed cacher. All keys are namespaced with
// keyPrefix so multiple caches can share one Redis database.
//
// Example:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	c := cacher.NewRedisCacher[nlp.ParsedCommand](client, "tilemud:nlp")
func NewRedisCacher[T any](client *redis.Client, keyPrefix string) Cacher[T] {
	return &redisCacher[T]{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (c *redisCacher[T]) key(key string) string {
	return c.keyPrefix + ":" + key
}

// GetOrFetch implements Cacher.
func (c *redisCacher[T]) GetOrFetch(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetchFn FetchFunc[T],
) (T, error) {
	var zero T
	fullKey := c.key(key)

	if val, err := c.get(ctx, fullKey); err == nil {
		return val, nil
	} else if !errors.Is(err, redis.Nil) {
		return zero, err
	}

	lockKey := fullKey + ":lock"
	acquired, err := c.client.SetNX(ctx, lockKey, "1", 30*time.Second).Result()
	if err != nil {
		return zero, fmt.Errorf("redis lock error: %w", err)
	}

	if !acquired {
		// Another instance is fetching; poll briefly for its result.
		for i := 0; i < 20; i++ {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}

			if val, err := c.get(ctx, fullKey); err == nil {
				return val, nil
			} else if !errors.Is(err, redis.Nil) {
				return zero, err
			}
		}
		// The winner never published; fetch without caching to stay correct.
		return fetchFn(ctx)
	}

	defer c.client.Del(ctx, lockKey)

	fetched, err := fetchFn(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(fetched)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal value for key %q: %w", key, err)
	}

	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return zero, fmt.Errorf("redis set error: %w", err)
	}

	return fetched, nil
}

func (c *redisCacher[T]) get(ctx context.Context, fullKey string) (T, error) {
	var zero T

	val, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return zero, err
		}
		return zero, fmt.Errorf("redis get error: %w", err)
	}

	var result T
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return result, nil
}

// Delete implements Cacher.
func (c *redisCacher[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}

	return nil
}

// Clear implements Cacher.
func (c *redisCacher[T]) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.keyPrefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete error: %w", err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan error: %w", err)
	}

	return nil
}
