package prelogin

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/storefront-web/internal/errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "prelogin:"

// RedisRepo implements Repo backed by Redis key expiry.
type RedisRepo struct {
	client redis.UniversalClient
}

var _ Repo = (*RedisRepo)(nil)

func NewRedisRepo(client redis.UniversalClient) *RedisRepo {
	return &RedisRepo{client: client}
}

func (r *RedisRepo) Put(ctx context.Context, key, path string, ttl time.Duration) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, path, ttl).Err(); err != nil {
		return fmt.Errorf("persist pre-login path: %w", err)
	}
	return nil
}

func (r *RedisRepo) Take(ctx context.Context, key string) (string, error) {
	path, err := r.client.GetDel(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", apperrors.ErrStashNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load pre-login path: %w", err)
	}
	return path, nil
}
