package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jo-hoe/takziah/internal/backend/database"
	"github.com/redis/go-redis/v9"
)

const galleryCacheKey = "takziah:gallery:public"

// RedisCache shares the cached gallery between server instances
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(address string, ttl time.Duration) *RedisCache {
	return NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: address}), ttl)
}

func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Load(ctx context.Context) ([]*database.Record, bool, error) {
	payload, err := r.client.Get(ctx, galleryCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read gallery cache: %w", err)
	}

	var records []*database.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("failed to decode gallery cache: %w", err)
	}
	return records, true, nil
}

func (r *RedisCache) Save(ctx context.Context, records []*database.Record) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode gallery cache: %w", err)
	}
	if err := r.client.Set(ctx, galleryCacheKey, payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write gallery cache: %w", err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
