package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/redis/go-redis/v9"
)

const defaultCursorPrefix = "mcf:cursor:"

// RedisCursorStore implements fulfillment.CursorStore on Redis strings.
// CompareAndSet uses WATCH/MULTI so concurrent writers on other instances
// make the transaction fail instead of overwriting each other.
type RedisCursorStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCursorStore connects to Redis and verifies the connection
func NewRedisCursorStore(cfg RedisConfig) (*RedisCursorStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCursorStoreWithClient(client, ""), nil
}

// NewRedisCursorStoreWithClient creates a store with an existing Redis client
func NewRedisCursorStoreWithClient(client *redis.Client, keyPrefix string) *RedisCursorStore {
	if keyPrefix == "" {
		keyPrefix = defaultCursorPrefix
	}
	return &RedisCursorStore{client: client, keyPrefix: keyPrefix}
}

// Get returns the cursor value, or "" when the key does not exist
func (s *RedisCursorStore) Get(ctx context.Context, name string) (string, error) {
	value, err := s.client.Get(ctx, s.keyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cursor %s: %w", name, err)
	}
	return value, nil
}

// Set writes the cursor value
func (s *RedisCursorStore) Set(ctx context.Context, name, value string) error {
	if err := s.client.Set(ctx, s.keyPrefix+name, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cursor %s: %w", name, err)
	}
	return nil
}

// CompareAndSet writes value only if the current value equals expected.
// A missing key matches an empty expected value.
func (s *RedisCursorStore) CompareAndSet(ctx context.Context, name, expected, value string) (bool, error) {
	key := s.keyPrefix + name
	swapped := false

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			current = ""
		case err != nil:
			return err
		}
		if current != expected {
			return nil
		}
		if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, 0)
			return nil
		}); err != nil {
			return err
		}
		swapped = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to swap cursor %s: %w", name, err)
	}
	return swapped, nil
}

// Close closes the Redis client
func (s *RedisCursorStore) Close() error {
	return s.client.Close()
}

var _ fulfillment.CursorStore = (*RedisCursorStore)(nil)
