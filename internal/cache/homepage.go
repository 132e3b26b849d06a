package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const homepageKey = "homepage:public"

// GetHomepage returns the cached rendered homepage, or nil on a miss.
func (c *Cache) GetHomepage(ctx context.Context) ([]byte, error) {
	data, err := c.client.Get(ctx, homepageKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get homepage: %w", err)
	}
	return data, nil
}

// SetHomepage stores the rendered homepage.
func (c *Cache) SetHomepage(ctx context.Context, data []byte) error {
	return c.client.Set(ctx, homepageKey, data, c.homepageTTL).Err()
}

// InvalidateHomepage drops the cached homepage.
func (c *Cache) InvalidateHomepage(ctx context.Context) error {
	return c.client.Del(ctx, homepageKey).Err()
}
