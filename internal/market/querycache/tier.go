package querycache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrTierMiss is returned by Tier.Get when the key is absent.
var ErrTierMiss = errors.New("querycache: tier miss")

// Tier is a shared cache behind the in-process entries.
type Tier interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisTier stores entries in Redis (or KeyDB) with a TTL of the query's
// cache time.
type RedisTier struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTier(rdb *redis.Client, prefix string) *RedisTier {
	return &RedisTier{rdb: rdb, prefix: prefix}
}

func (t *RedisTier) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := t.rdb.Get(ctx, t.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTierMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (t *RedisTier) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := t.rdb.Set(ctx, t.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (t *RedisTier) Delete(ctx context.Context, key string) error {
	if err := t.rdb.Del(ctx, t.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (t *RedisTier) Ping(ctx context.Context) error {
	return t.rdb.Ping(ctx).Err()
}
