// Package cache provides Redis-based caching for narrative summaries.
// The summarizer is slow and unreliable; re-rendering a report with an
// unchanged prompt reuses the cached text instead of calling out again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a cached narrative stays valid
const DefaultTTL = 24 * time.Hour

// Cache wraps a Redis client. A disabled cache is a no-op.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	enabled   bool
}

// Config holds cache configuration
type Config struct {
	URL       string
	KeyPrefix string
	TTL       time.Duration
	Enabled   bool
}

// New creates a Cache. With Enabled false no connection is made and every
// operation is a no-op.
func New(cfg *Config) (*Cache, error) {
	if !cfg.Enabled {
		return &Cache{enabled: false}, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "casetrace"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Cache{client: client, keyPrefix: prefix, ttl: ttl, enabled: true}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsEnabled returns whether caching is enabled
func (c *Cache) IsEnabled() bool {
	return c.enabled
}

// PromptKey derives the cache key for a summarizer prompt
func PromptKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// GetNarrative returns the cached narrative for a prompt key, if any
func (c *Cache) GetNarrative(ctx context.Context, promptKey string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	text, err := c.client.Get(ctx, c.key("narrative", promptKey)).Result()
	if err != nil {
		return "", false
	}
	return text, true
}

// SetNarrative stores a narrative under its prompt key
func (c *Cache) SetNarrative(ctx context.Context, promptKey, text string) error {
	if !c.enabled {
		return nil
	}
	return c.client.Set(ctx, c.key("narrative", promptKey), text, c.ttl).Err()
}

func (c *Cache) key(parts ...string) string {
	key := c.keyPrefix
	for _, part := range parts {
		key += ":" + part
	}
	return key
}
