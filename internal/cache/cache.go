// Package cache remembers recent verdicts so the same text reported twice
// does not cost a second oracle call. Keys are derived from the analyzed
// text, never from chat or member identity.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "verdict:"

// VerdictCache maps analyzed text to a previously recognized verdict label.
type VerdictCache interface {
	Get(ctx context.Context, text string) (string, bool, error)
	Set(ctx context.Context, text string, label string) error
}

// Key hashes text into a fixed-size cache key.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return keyPrefix + hex.EncodeToString(sum[:])
}

type MemoryCache struct {
	lru *lru.LRU[string, string]
}

func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: lru.NewLRU[string, string](size, nil, ttl)}
}

func (c *MemoryCache) Get(ctx context.Context, text string) (string, bool, error) {
	label, ok := c.lru.Get(Key(text))
	return label, ok, nil
}

func (c *MemoryCache) Set(ctx context.Context, text string, label string) error {
	c.lru.Add(Key(text), label)
	return nil
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, text string) (string, bool, error) {
	label, err := c.client.Get(ctx, Key(text)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return label, true, nil
}

func (c *RedisCache) Set(ctx context.Context, text string, label string) error {
	return c.client.Set(ctx, Key(text), label, c.ttl).Err()
}
