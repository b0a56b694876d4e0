package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arthive/arthive/internal/database"
	"github.com/arthive/arthive/internal/models"
)

// RedisStore is a SessionStore backed by Redis, so pending verifications
// survive restarts and expire server-side via TTL.
type RedisStore struct {
	redis *database.Redis
}

// NewRedisStore wraps an existing Redis connection.
func NewRedisStore(r *database.Redis) *RedisStore {
	return &RedisStore{redis: r}
}

func sessionKey(email string) string {
	return "otp:pending:" + email
}

// Put stores the entry as a JSON value with TTL. A single SET overwrites
// atomically.
func (s *RedisStore) Put(ctx context.Context, email string, pending *models.PendingAuth, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal pending auth: %w", err)
	}
	return s.redis.Set(ctx, sessionKey(email), payload, ttl)
}

// Get fetches and decodes the entry; expired keys surface as ErrNoSession.
func (s *RedisStore) Get(ctx context.Context, email string) (*models.PendingAuth, error) {
	raw, err := s.redis.Get(ctx, sessionKey(email))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}

	var pending models.PendingAuth
	if err := json.Unmarshal([]byte(raw), &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending auth: %w", err)
	}
	return &pending, nil
}

// Delete removes the entry. Redis DEL on a missing key is a no-op.
func (s *RedisStore) Delete(ctx context.Context, email string) error {
	return s.redis.Delete(ctx, sessionKey(email))
}
