package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ordertrack/backend/internal/domain/tracking"
)

// RedisCycleLock implements tracking.CycleLock using Redis.
// This is suitable for distributed deployments where multiple instances
// must not reconcile the same orders concurrently.
type RedisCycleLock struct {
	client *redis.Client
	key    string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCycleLock creates a new Redis-backed cycle lock
func NewRedisCycleLock(cfg RedisConfig) (*RedisCycleLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCycleLock{
		client: client,
		key:    "tracking:reconcile:lock",
	}, nil
}

// NewRedisCycleLockWithClient creates a lock with an existing Redis client.
// This is useful for testing or when sharing a client across components.
func NewRedisCycleLockWithClient(client *redis.Client, key string) *RedisCycleLock {
	if key == "" {
		key = "tracking:reconcile:lock"
	}
	return &RedisCycleLock{
		client: client,
		key:    key,
	}
}

// Acquire tries to take the cycle lock for at most ttl.
// SETNX with TTL makes the claim atomic: exactly one instance wins, and the
// TTL guarantees a crashed holder cannot wedge reconciliation forever.
func (l *RedisCycleLock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	acquired, err := l.client.SetNX(ctx, l.key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire cycle lock: %w", err)
	}
	return acquired, nil
}

// Release frees the lock after the cycle finishes
func (l *RedisCycleLock) Release(ctx context.Context) error {
	if err := l.client.Del(ctx, l.key).Err(); err != nil {
		return fmt.Errorf("failed to release cycle lock: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisCycleLock) Close() error {
	return l.client.Close()
}

// Ensure RedisCycleLock implements tracking.CycleLock
var _ tracking.CycleLock = (*RedisCycleLock)(nil)
