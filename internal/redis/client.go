// Package redis provides the Redis client and the cross-instance
// notification Pub/Sub used when more than one server instance runs.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewClient creates a go-redis client from a URL (e.g., "redis://localhost:6379")
// and verifies the connection.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return rdb, nil
}

// Health adapts the client to an error-returning Ping for readiness checks.
type Health struct {
	rdb *redis.Client
}

func NewHealth(rdb *redis.Client) Health {
	return Health{rdb: rdb}
}

func (h Health) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}
