package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hungpv1995/blog-api/internal/models"
)

const keyPrefix = "post:"

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func postKey(postID string) string {
	return keyPrefix + postID
}

// GetPost retrieves a post from cache; a miss returns nil, nil
func (c *RedisCache) GetPost(ctx context.Context, postID string) (*models.BlogPost, error) {
	data, err := c.client.Get(ctx, postKey(postID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}

	var post models.BlogPost
	if err := json.Unmarshal([]byte(data), &post); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached data: %w", err)
	}

	return &post, nil
}

// SetPost stores a post in cache with TTL
func (c *RedisCache) SetPost(ctx context.Context, post *models.BlogPost, ttl time.Duration) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	if err := c.client.Set(ctx, postKey(post.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// InvalidatePost removes a post from cache
func (c *RedisCache) InvalidatePost(ctx context.Context, postID string) error {
	if err := c.client.Del(ctx, postKey(postID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}

	return nil
}

// Flush removes every cached post
func (c *RedisCache) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to flush cache: %w", err)
	}
	return nil
}

// Ping checks if Redis is available
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
