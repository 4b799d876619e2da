package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
)

// Key prefix for cached schemas.
const prefixSchema = "schema:"

// RedisCache is a SchemaCache shared across instances. Entries are
// stored without expiry; replacement happens only on re-scan of the
// same URL.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Health checks Redis connectivity.
func (c *RedisCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Client returns the underlying Redis client, used by the rate-limit
// middleware.
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// Get returns the cached schema for url.
func (c *RedisCache) Get(ctx context.Context, url string) (*domain.FormSchema, bool, error) {
	data, err := c.client.Get(ctx, prefixSchema+url).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var schema domain.FormSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, false, err
	}
	return &schema, true, nil
}

// Put stores schema keyed by its URL. Last write wins.
func (c *RedisCache) Put(ctx context.Context, schema *domain.FormSchema) error {
	if schema == nil || schema.URL == "" {
		return domain.ErrValidationField("schema", "schema with a URL is required")
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, prefixSchema+schema.URL, data, 0).Err()
}

// CheckRateLimit increments the per-key request counter and reports
// whether the caller is within limit for the current one-minute window.
func (c *RedisCache) CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error) {
	fullKey := "ratelimit:" + key

	pipe := c.client.Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, err
	}

	count := int(incr.Val())
	return count <= limit, count, nil
}
