package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lucidnotes/lucid-search/internal/config"
	"github.com/lucidnotes/lucid-search/internal/pkg/logger"
)

// Cache is a Redis-backed embedding cache keyed by a hash of the input text.
// Cache failures are soft: a miss is returned and the provider falls through
// to the API. A nil *Cache is valid and behaves as disabled.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewCache connects to Redis using the configured URL. Returns (nil, nil)
// when caching is disabled.
func NewCache(cfg config.CacheConfig, log *logger.Logger) (*Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return &Cache{
		rdb: redis.NewClient(opts),
		ttl: time.Duration(cfg.TTLSeconds) * time.Second,
		log: log,
	}, nil
}

// Get returns the cached embedding for text, or (nil, false) on a miss.
func (c *Cache) Get(ctx context.Context, text string) ([]float32, bool) {
	if c == nil {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, cacheKey(text)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("embedding cache read failed", "error", err)
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		c.log.Warn("embedding cache entry corrupt", "error", err)
		return nil, false
	}
	return vec, true
}

// Set stores an embedding for text. Failures are logged and ignored.
func (c *Cache) Set(ctx context.Context, text string, vec []float32) {
	if c == nil {
		return
	}

	data, err := json.Marshal(vec)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, cacheKey(text), data, c.ttl).Err(); err != nil {
		c.log.Warn("embedding cache write failed", "error", err)
	}
}

// Ping verifies the cache backend is reachable. A nil cache is healthy.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.rdb.Close()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}
