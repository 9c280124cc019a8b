package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// CredentialCache stores the bcrypt hash of the room creator password
type CredentialCache interface {
	PasswordHash(ctx context.Context) (string, error)
	InitPasswordHash(ctx context.Context, hash string) (bool, error)
	SetPasswordHash(ctx context.Context, hash string) error
}

type credentialCache struct {
	client *redis.Client
}

func NewCredentialCache(client *redis.Client) CredentialCache {
	return &credentialCache{client: client}
}

// PasswordHash returns "" when no password was set yet
func (c *credentialCache) PasswordHash(ctx context.Context) (string, error) {
	hash, err := c.client.Get(ctx, creatorPasswordKey).Result()
	if err == redis.Nil {
		return "", nil
	}
	return hash, err
}

// InitPasswordHash sets the hash only if none exists
func (c *credentialCache) InitPasswordHash(ctx context.Context, hash string) (bool, error) {
	return c.client.SetNX(ctx, creatorPasswordKey, hash, 0).Result()
}

func (c *credentialCache) SetPasswordHash(ctx context.Context, hash string) error {
	return c.client.Set(ctx, creatorPasswordKey, hash, 0).Err()
}
