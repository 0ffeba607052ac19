package scholar

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"research-assistant-be/internal/pkg/logger"
	"research-assistant-be/pkg/store"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
)

// Cache stores complete search results by (query, year filter).
type Cache interface {
	Get(ctx context.Context, key string) ([]store.Paper, bool)
	Set(ctx context.Context, key string, papers []store.Paper)
}

type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]store.Paper, bool) { return nil, false }
func (NopCache) Set(context.Context, string, []store.Paper)        {}

// LRUCache is a bounded in-process cache.
type LRUCache struct {
	lru *lru.Cache[string, []store.Paper]
}

func NewLRUCache(size int) (*LRUCache, error) {
	if size <= 0 {
		size = 100
	}
	c, err := lru.New[string, []store.Paper](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{lru: c}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]store.Paper, bool) {
	papers, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return clonePapers(papers), true
}

func (c *LRUCache) Set(_ context.Context, key string, papers []store.Paper) {
	c.lru.Add(key, clonePapers(papers))
}

func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares results between instances. Errors degrade to misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.ILogger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, log logger.ILogger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]store.Paper, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("SCHOLAR", "Redis cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return nil, false
	}
	var papers []store.Paper
	if err := json.Unmarshal(raw, &papers); err != nil {
		c.logger.Warn("SCHOLAR", "Redis cache entry unreadable", map[string]interface{}{"key": key, "error": err.Error()})
		return nil, false
	}
	return papers, true
}

func (c *RedisCache) Set(ctx context.Context, key string, papers []store.Paper) {
	raw, err := json.Marshal(papers)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("SCHOLAR", "Redis cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// TieredCache reads tiers in order and backfills the faster tiers on a hit
// further down. Writes go to every tier.
type TieredCache struct {
	tiers []Cache
}

func NewTieredCache(tiers ...Cache) *TieredCache {
	return &TieredCache{tiers: tiers}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]store.Paper, bool) {
	for i, tier := range c.tiers {
		papers, ok := tier.Get(ctx, key)
		if !ok {
			continue
		}
		for j := 0; j < i; j++ {
			c.tiers[j].Set(ctx, key, papers)
		}
		return papers, true
	}
	return nil, false
}

func (c *TieredCache) Set(ctx context.Context, key string, papers []store.Paper) {
	for _, tier := range c.tiers {
		tier.Set(ctx, key, papers)
	}
}

func clonePapers(in []store.Paper) []store.Paper {
	if in == nil {
		return nil
	}
	out := make([]store.Paper, len(in))
	copy(out, in)
	return out
}
