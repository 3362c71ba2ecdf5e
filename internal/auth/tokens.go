package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenCache remembers issued bearer tokens so the middleware can check
// presence without a database round trip.
type TokenCache interface {
	Save(ctx context.Context, token, username string, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (string, bool)
}

// MemoryTokenCache is the in-process fallback when Redis is disabled.
type MemoryTokenCache struct {
	mu     sync.RWMutex
	tokens map[string]memToken
}

type memToken struct {
	username string
	expires  time.Time
}

// NewMemoryTokenCache returns an empty cache.
func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]memToken)}
}

func (c *MemoryTokenCache) Save(_ context.Context, token, username string, ttl time.Duration) error {
	c.mu.Lock()
	c.tokens[token] = memToken{username: username, expires: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func (c *MemoryTokenCache) Lookup(_ context.Context, token string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.tokens[token]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		c.mu.Lock()
		delete(c.tokens, token)
		c.mu.Unlock()
		return "", false
	}
	return entry.username, true
}

// RedisTokenCache keeps tokens in Redis so restarts and replicas share
// them.
type RedisTokenCache struct {
	client *redis.Client
}

// NewRedisTokenCache returns a cache over an established client.
func NewRedisTokenCache(client *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{client: client}
}

func (c *RedisTokenCache) Save(ctx context.Context, token, username string, ttl time.Duration) error {
	return c.client.Set(ctx, "bearer:"+token, username, ttl).Err()
}

func (c *RedisTokenCache) Lookup(ctx context.Context, token string) (string, bool) {
	username, err := c.client.Get(ctx, "bearer:"+token).Result()
	if err != nil {
		return "", false
	}
	return username, true
}
