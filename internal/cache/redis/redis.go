package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/aniladanir/retry"
	"github.com/go-redis/redis/v8"
)

type RedisCache struct {
	client *redis.Client
}

// Connect opens a redis client and pings it, retrying a few times while the
// instance comes up.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	rClient := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	retrier, err := retry.New(retry.WithMaxAttemps(5))
	if err != nil {
		return nil, err
	}

	var pingErr error
	ok := <-retrier.Retry(ctx, func(attempt int) bool {
		pingErr = rClient.Ping(ctx).Err()
		return pingErr == nil
	}, true)
	if !ok {
		_ = rClient.Close()
		return nil, fmt.Errorf("failed to ping redis instance: %w", pingErr)
	}

	return rClient, nil
}

// NewRedisCache creates a new redis cache that complies with cache interface
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client: client,
	}
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
