// Package redis builds the shared Redis client used by
// internal/storage/redisstore as the durable backing for the anti-replay
// Storage collaborator (§6): nonce and nullifier reservations.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config is the connection configuration for the nonce/nullifier store.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// New creates a new Redis client
func New(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping tests the Redis connection
func Ping(ctx context.Context, client *redis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
