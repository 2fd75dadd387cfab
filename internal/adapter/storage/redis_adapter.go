package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix  = "session:"
	idempotencyKeyTTL = 24 * time.Hour
)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

func (r *RedisAdapter) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	return r.client.Set(ctx, sessionKeyPrefix+sessionID, 1, ttl).Err()
}

func (r *RedisAdapter) SessionAlive(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, sessionKeyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *RedisAdapter) DropSession(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
