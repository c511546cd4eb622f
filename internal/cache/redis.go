package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const generationKey = "listings:gen"

type RedisListingCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisListingCache(client *redis.Client, ttl time.Duration) *RedisListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisListingCache{client: client, ttl: ttl}
}

func (c *RedisListingCache) key(ctx context.Context, params map[string]string) (string, error) {
	gen, err := c.client.Get(ctx, generationKey).Result()
	if err == redis.Nil {
		gen = "0"
	} else if err != nil {
		return "", err
	}
	return GenerateQueryCacheKey("listings:"+gen, params), nil
}

func (c *RedisListingCache) Get(ctx context.Context, params map[string]string, dest interface{}) (string, bool, error) {
	key, err := c.key(ctx, params)
	if err != nil {
		return "", false, err
	}
	data, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return key, false, nil
	}
	if err != nil {
		return "", false, err
	}
	return key, true, json.Unmarshal([]byte(data), dest)
}

// Set stores value under a key returned by Get. An empty key is a no-op.
func (c *RedisListingCache) Set(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisListingCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}
