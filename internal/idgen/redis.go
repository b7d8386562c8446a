package idgen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSequencer backs display id sequences with INCR, which is atomic
// across every instance sharing the Redis server.
type RedisSequencer struct {
	client    *redis.Client
	keyPrefix string
}

func NewRedisSequencer(client *redis.Client, keyPrefix string) *RedisSequencer {
	if keyPrefix == "" {
		keyPrefix = "salespipeline:seq:"
	}
	return &RedisSequencer{client: client, keyPrefix: keyPrefix}
}

// NewRedisClient connects and pings, failing fast on a bad address.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func (s *RedisSequencer) NextValue(ctx context.Context, prefix string) (int64, error) {
	n, err := s.client.Incr(ctx, s.keyPrefix+prefix).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", prefix, err)
	}
	return n, nil
}
