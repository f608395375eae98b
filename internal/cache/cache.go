package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mantralabs/japa-api/internal/dates"
	"github.com/redis/go-redis/v9"
)

// Store is the key -> JSON cache contract the engine consumes. Values
// are whole JSON blobs; partial updates are read-modify-write.
type Store interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Cache is the Redis-backed Store used in production.
type Cache struct {
	client *redis.Client
}

var _ Store = (*Cache)(nil)

// New connects to Redis and verifies connectivity.
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// Client exposes the underlying Redis client for collaborators that
// need it directly (the rate limiter store).
func (c *Cache) Client() *redis.Client {
	return c.client
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}

// GetJSON reads a key and unmarshals it into v. The boolean reports
// whether the key existed; a missing key is not an error.
func (c *Cache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache key %s: %w", key, err)
	}
	return true, nil
}

// SetJSON marshals v and writes it under key, without expiry: the
// cache is the device-local source of truth between syncs, not a TTL
// cache.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache key %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes a key. Deleting a missing key is a no-op.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// HealthCheck verifies the Redis connection is healthy.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// CounterKey is the cache key for a user's counter snapshot.
func CounterKey(userID uuid.UUID) string {
	return fmt.Sprintf("counters:v1:%s", userID)
}

// StreakKey is the cache key for a user's streak record.
func StreakKey(userID uuid.UUID) string {
	return fmt.Sprintf("streaks:v1:%s", userID)
}

// MonthLogKey is the cache key for a user's month progress log.
func MonthLogKey(userID uuid.UUID, year int, month time.Month) string {
	return fmt.Sprintf("logs:%s:%s", userID, dates.MonthKey(year, month))
}

// AdFrequencyKey is the cache key for a user's ad throttling blob.
func AdFrequencyKey(userID uuid.UUID) string {
	return fmt.Sprintf("adfreq:v1:%s", userID)
}
