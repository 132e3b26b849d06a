// Package cache provides Redis cache access layer.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default TTLs applied when Config leaves them zero.
const (
	DefaultPrincipalTTL = 5 * time.Minute
	DefaultHomepageTTL  = 30 * time.Second
)

// Config controls entry lifetimes.
type Config struct {
	PrincipalTTL time.Duration
	HomepageTTL  time.Duration
}

// Cache provides Redis cache access methods.
type Cache struct {
	client       *redis.Client
	principalTTL time.Duration
	homepageTTL  time.Duration
}

// New creates a new Cache with a Redis client.
func New(ctx context.Context, redisURL string, cfg Config) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Connection pool settings
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, cfg Config) *Cache {
	if cfg.PrincipalTTL <= 0 {
		cfg.PrincipalTTL = DefaultPrincipalTTL
	}
	if cfg.HomepageTTL <= 0 {
		cfg.HomepageTTL = DefaultHomepageTTL
	}
	return &Cache{
		client:       client,
		principalTTL: cfg.PrincipalTTL,
		homepageTTL:  cfg.HomepageTTL,
	}
}

// Ping checks Redis connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client.
// Use sparingly - prefer adding methods to Cache.
func (c *Cache) Client() *redis.Client {
	return c.client
}
