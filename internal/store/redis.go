package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "visitor:session:"

// Redis backs the slot with a shared Redis, for kiosk fleets where the
// display process restarts between page loads. TTL ages out abandoned slots.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis returns a Redis-backed store.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{client: client, ttl: ttl}
}

// Get returns the slot for the scope.
func (r *Redis) Get(ctx context.Context, scope string) (string, bool, error) {
	id, err := r.client.Get(ctx, keyPrefix+scope).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// Set overwrites the slot.
func (r *Redis) Set(ctx context.Context, scope, sessionID string) error {
	if scope == "" {
		return errors.New("store: scope cannot be empty")
	}
	if sessionID == "" {
		return errors.New("store: session id cannot be empty")
	}
	return r.client.Set(ctx, keyPrefix+scope, sessionID, r.ttl).Err()
}
