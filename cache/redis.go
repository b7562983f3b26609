package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another process holds the acquisition lock
var ErrLocked = errors.New("lock is held by another run")

// ErrDisabled is returned by every call on a nil client
var ErrDisabled = errors.New("redis disabled")

// Keys shared with other consumers of run summaries
const (
	RunsChannel  = "trends:runs"        // JSON summary of every finished run
	LatestRunKey = "trends:runs:latest" // last summary, overwritten by each run
	LatestRunTTL = 30 * 24 * time.Hour
)

const acquisitionLockKey = "trends:acquisition:lock"

// releaseScript deletes the lock only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient wraps redis.Client. A nil *RedisClient is valid and disables every call.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client, or returns nil when Redis is unreachable
func NewRedisClient(host, port, password string) *RedisClient {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️  Failed to connect to Redis at %s: %v", addr, err)
		client.Close()
		return nil
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &RedisClient{client: client}
}

// NewFromClient wraps an existing client
func NewFromClient(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

func (r *RedisClient) ready() error {
	if r == nil || r.client == nil {
		return ErrDisabled
	}
	return nil
}

// Set stores a JSON value in Redis with expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := r.ready(); err != nil {
		return err
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// Publish sends a JSON message to a channel
func (r *RedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if err := r.ready(); err != nil {
		return err
	}

	jsonBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, channel, jsonBytes).Err()
}

// AcquireLock takes the cross-process acquisition lock so two runs never query the
// provider at the same time. It returns ErrLocked when another run holds it.
func (r *RedisClient) AcquireLock(ctx context.Context, token string, ttl time.Duration) error {
	if err := r.ready(); err != nil {
		return err
	}

	ok, err := r.client.SetNX(ctx, acquisitionLockKey, token, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

// ReleaseLock releases the acquisition lock if token still owns it
func (r *RedisClient) ReleaseLock(ctx context.Context, token string) error {
	if err := r.ready(); err != nil {
		return err
	}
	return releaseScript.Run(ctx, r.client, []string{acquisitionLockKey}, token).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}
