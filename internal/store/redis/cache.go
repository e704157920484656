// Package redis caches daily bar histories in Redis in front of a Fetcher.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/BuyBio/BuyBio/internal/collector"
	"github.com/BuyBio/BuyBio/internal/metrics"
	"github.com/BuyBio/BuyBio/internal/model"
)

// Config configures the Redis bar cache.
type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// BarCache decorates a Fetcher with a Redis read-through cache. Cache
// failures are logged and fall through to the wrapped fetcher.
type BarCache struct {
	client  *goredis.Client
	next    collector.Fetcher
	ttl     time.Duration
	Metrics *metrics.Metrics
}

// NewBarCache connects to Redis, pings it and wraps next.
func NewBarCache(cfg Config, next collector.Fetcher) (*BarCache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[INFO] redis bar cache connected to %s (ttl=%s)", cfg.Addr, cfg.TTL)
	return newBarCache(client, next, cfg.TTL), nil
}

func newBarCache(client *goredis.Client, next collector.Fetcher, ttl time.Duration) *BarCache {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	return &BarCache{client: client, next: next, ttl: ttl}
}

// Key is the cache key of one fetch request.
func Key(source, code string, days int) string {
	return fmt.Sprintf("buybio:bars:%s:%s:%d", source, code, days)
}

// Name reports the wrapped source so metrics and logs stay per source.
func (c *BarCache) Name() string { return c.next.Name() }

func (c *BarCache) FetchDailyBars(ctx context.Context, code string, days int) ([]model.Bar, error) {
	key := Key(c.next.Name(), code, days)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bars []model.Bar
		jerr := json.Unmarshal(raw, &bars)
		if jerr == nil {
			c.Metrics.CacheResult(c.Name(), "hit")
			return bars, nil
		}
		log.Printf("[WARN] redis cache %s: corrupt entry: %v", key, jerr)
		c.Metrics.CacheResult(c.Name(), "error")
	case errors.Is(err, goredis.Nil):
		c.Metrics.CacheResult(c.Name(), "miss")
	default:
		log.Printf("[WARN] redis cache get %s: %v", key, err)
		c.Metrics.CacheResult(c.Name(), "error")
	}

	bars, err := c.next.FetchDailyBars(ctx, code, days)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(bars)
	if err != nil {
		return bars, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("[WARN] redis cache set %s: %v", key, err)
	}
	return bars, nil
}

// Invalidate drops the cached history of code for the given request size.
func (c *BarCache) Invalidate(ctx context.Context, code string, days int) error {
	return c.client.Del(ctx, Key(c.next.Name(), code, days)).Err()
}

func (c *BarCache) Close() error {
	return c.client.Close()
}
