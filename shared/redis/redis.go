package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"phone-sim-demo/backend/pkg/config"
)

// Client wraps the go-redis client with the options used by this service
type Client struct {
	client *redis.Client
}

// NewClient creates a Redis client from application configuration
func NewClient() *Client {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &Client{client: client}
}

// Set stores a value under key with the given expiration
func (r *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves the string value stored under key
func (r *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Del removes the value stored under key
func (r *Client) Del(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Ping checks connectivity to the Redis server
func (r *Client) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
