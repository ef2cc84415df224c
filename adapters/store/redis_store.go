package store

import (
	"context"
	"fmt"
	"time"

	"github.com/mishannn/tinkoff/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "tinkoff:confirmation:claimed:",
	}
}

// Claim reserves a confirmation with SET NX, so only one caller wins
func (s *RedisStore) Claim(ctx context.Context, confirmationID string, expiry time.Duration) (bool, error) {
	key := s.prefix + confirmationID

	ok, err := s.client.SetNX(ctx, key, "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim confirmation: %w", err)
	}

	return ok, nil
}

// Release deletes the claim on a confirmation
func (s *RedisStore) Release(ctx context.Context, confirmationID string) error {
	key := s.prefix + confirmationID

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release confirmation: %w", err)
	}

	return nil
}
