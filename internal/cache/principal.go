package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/phoebe/phoebe/internal/model"
)

const (
	principalPrefix     = "principal:user:"
	credentialPrefix    = "principal:basic:"
	credentialSetPrefix = "principal:basic-keys:"
)

// cachedPrincipal is the stored form. The auth method is per request and
// is not cached.
type cachedPrincipal struct {
	UserID      string   `json:"user_id"`
	Username    string   `json:"username"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// GetPrincipal returns the cached principal for userID, or nil on a miss.
func (c *Cache) GetPrincipal(ctx context.Context, userID string) (*model.Principal, error) {
	data, err := c.client.Get(ctx, principalPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get principal: %w", err)
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Principal{
		UserID:      cached.UserID,
		Username:    cached.Username,
		Roles:       cached.Roles,
		Permissions: cached.Permissions,
	}, nil
}

// SetPrincipal caches p under its user ID.
func (c *Cache) SetPrincipal(ctx context.Context, p *model.Principal) error {
	if p == nil || p.UserID == "" {
		return nil
	}

	data, err := json.Marshal(cachedPrincipal{
		UserID:      p.UserID,
		Username:    p.Username,
		Roles:       p.Roles,
		Permissions: p.Permissions,
	})
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	return c.client.Set(ctx, principalPrefix+p.UserID, data, c.principalTTL).Err()
}

// GetCredentialUser returns the user ID previously verified for the Basic
// credential digest, or "" on a miss.
func (c *Cache) GetCredentialUser(ctx context.Context, digest string) (string, error) {
	userID, err := c.client.Get(ctx, credentialPrefix+digest).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("get credential: %w", err)
	}
	return userID, nil
}

// SetCredentialUser records that digest was verified for userID. The digest
// is tracked per user so DeletePrincipal can drop it.
func (c *Cache) SetCredentialUser(ctx context.Context, digest, userID string) error {
	setKey := credentialSetPrefix + userID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, credentialPrefix+digest, userID, c.principalTTL)
		pipe.SAdd(ctx, setKey, digest)
		pipe.Expire(ctx, setKey, c.principalTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}

// DeletePrincipal removes the cached principal for userID together with
// every Basic credential verified for it.
func (c *Cache) DeletePrincipal(ctx context.Context, userID string) error {
	setKey := credentialSetPrefix + userID
	digests, err := c.client.SMembers(ctx, setKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("list credentials: %w", err)
	}

	keys := make([]string, 0, len(digests)+2)
	keys = append(keys, principalPrefix+userID, setKey)
	for _, d := range digests {
		keys = append(keys, credentialPrefix+d)
	}
	return c.client.Del(ctx, keys...).Err()
}
