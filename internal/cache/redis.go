package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 3 * time.Second

// RedisCache stores entries as JSON under "url:<code>" with a bounded
// TTL, independent of the entry's own expiry. Every operation carries
// a short timeout and swallows Redis failures.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func key(code string) string {
	return "url:" + code
}

func (r *RedisCache) Get(ctx context.Context, code string) (*Entry, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, key(code)).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("cache get failed, treating as miss", "code", code, "err", err)
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		slog.Warn("cache entry undecodable, treating as miss", "code", code, "err", err)
		return nil, false
	}
	return &entry, true
}

func (r *RedisCache) Set(ctx context.Context, code string, entry *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := json.Marshal(entry)
	if err != nil {
		slog.Warn("cache set skipped", "code", code, "err", err)
		return nil
	}
	if err := r.client.Set(ctx, key(code), raw, r.ttl).Err(); err != nil {
		slog.Warn("cache set failed", "code", code, "err", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, code string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := r.client.Del(ctx, key(code)).Err(); err != nil {
		slog.Warn("cache invalidate failed", "code", code, "err", err)
	}
	return nil
}

func (r *RedisCache) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
