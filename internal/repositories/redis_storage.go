package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisTabStorage struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTabStorage keeps each scope in one hash whose TTL is refreshed on
// every write, so idle scopes expire on their own.
func NewRedisTabStorage(client *redis.Client, ttl time.Duration) TabStorage {
	return &redisTabStorage{client: client, ttl: ttl}
}

func tabKey(scope string) string {
	return fmt.Sprintf("tab:%s", scope)
}

// GetItem implements TabStorage.
func (r *redisTabStorage) GetItem(ctx context.Context, scope, key string) (string, bool, error) {
	if err := checkScope(scope); err != nil {
		return "", false, err
	}

	value, err := r.client.HGet(ctx, tabKey(scope), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read tab item: %w", err)
	}
	return value, true, nil
}

// SetItem implements TabStorage.
func (r *redisTabStorage) SetItem(ctx context.Context, scope, key, value string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, tabKey(scope), key, value)
		if r.ttl > 0 {
			pipe.Expire(ctx, tabKey(scope), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write tab item: %w", err)
	}
	return nil
}

// RemoveItem implements TabStorage.
func (r *redisTabStorage) RemoveItem(ctx context.Context, scope, key string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	if err := r.client.HDel(ctx, tabKey(scope), key).Err(); err != nil {
		return fmt.Errorf("failed to remove tab item: %w", err)
	}
	return nil
}

// Clear implements TabStorage.
func (r *redisTabStorage) Clear(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	if err := r.client.Del(ctx, tabKey(scope)).Err(); err != nil {
		return fmt.Errorf("failed to clear tab: %w", err)
	}
	return nil
}

// Touch implements TabStorage.
func (r *redisTabStorage) Touch(ctx context.Context, scope string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if r.ttl <= 0 {
		return nil
	}

	if err := r.client.Expire(ctx, tabKey(scope), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh tab ttl: %w", err)
	}
	return nil
}

// PurgeIdle implements TabStorage. Redis expires idle scopes by TTL.
func (r *redisTabStorage) PurgeIdle(ctx context.Context, idle time.Duration) (int, error) {
	return 0, nil
}
