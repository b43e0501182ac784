// Package cache stores successful analysis results keyed by the taxonomy,
// prompt, oracle model and document that produced them.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"validity.app/auditor/core/config"
	"validity.app/auditor/internal/model"
)

const redisKeyPrefix = "validity:result:"

// Cache is a content-addressed result store. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) (*model.Result, bool, error)
	Set(ctx context.Context, key string, result *model.Result) error
}

// Key hashes a document together with every scope value that determines its
// analysis outcome. Fields are length-prefixed so no two inputs share an encoding.
func Key(document string, scope ...string) string {
	h := sha256.New()
	write := func(part string) {
		fmt.Fprintf(h, "%d:", len(part))
		h.Write([]byte(part))
	}
	for _, part := range scope {
		write(part)
	}
	write(document)
	return hex.EncodeToString(h.Sum(nil))
}

// New picks the backend named by cfg. rdb may be nil unless the backend is redis.
func New(cfg config.CacheConfig, rdb *redis.Client) (Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		if rdb == nil {
			return nil, errors.New("redis cache requires a redis client")
		}
		return NewRedis(rdb, cfg.TTL), nil
	case config.CacheBackendMemory, "":
		return NewMemory(cfg.MemorySize, cfg.TTL), nil
	case config.CacheBackendNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{client: client, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) (*model.Result, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached result: %w", err)
	}
	result, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching result: %w", err)
	}
	return nil
}

// memoryCache stores encoded results so callers never share a *model.Result.
type memoryCache struct {
	lru *expirable.LRU[string, []byte]
}

func NewMemory(size int, ttl time.Duration) Cache {
	if size <= 0 {
		size = 256
	}
	return &memoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*model.Result, bool, error) {
	data, ok := c.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	result, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return result, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, result *model.Result) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	c.lru.Add(key, data)
	return nil
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*model.Result, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, string, *model.Result) error         { return nil }

func decode(data []byte) (*model.Result, error) {
	var result model.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decoding cached result: %w", err)
	}
	return &result, nil
}
