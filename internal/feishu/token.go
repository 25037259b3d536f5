package feishu

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache stores the tenant access token until it expires.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, token string, ttl time.Duration) error
}

// RedisTokenCache keeps the token in redis so parallel invocations of the
// pipelines share one token instead of each requesting their own.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache wraps an existing redis client.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, token string, ttl time.Duration) error {
	return c.client.Set(ctx, key, token, ttl).Err()
}

// MemoryTokenCache is the in-process fallback when redis is not configured.
type MemoryTokenCache struct {
	mu       sync.Mutex
	token    string
	key      string
	expireAt time.Time
}

// NewMemoryTokenCache creates an empty in-process cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != key || time.Now().After(c.expireAt) {
		return "", nil
	}
	return c.token, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, token string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
	c.token = token
	c.expireAt = time.Now().Add(ttl)
	return nil
}
