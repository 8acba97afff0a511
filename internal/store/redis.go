package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const profilePrefix = "profile:"

// RedisKV stores each slot under profile:<id>:<key>. Profile slots share a
// sliding TTL; persistent keys never expire.
type RedisKV struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisKV wraps an existing client. ttl <= 0 keeps keys forever.
func NewRedisKV(rdb *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{rdb: rdb, ttl: ttl}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisKV, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisKV(rdb, ttl), nil
}

func redisKey(profile, key string) string {
	return fmt.Sprintf("%s%s:%s", profilePrefix, profile, key)
}

func (r *RedisKV) Get(ctx context.Context, profile, key string) ([]byte, bool, error) {
	data, err := r.rdb.Get(ctx, redisKey(profile, key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load slot: %w", err)
	}
	return data, true, nil
}

func (r *RedisKV) Set(ctx context.Context, profile, key string, value []byte) error {
	if r.ttl <= 0 || Persistent(key) {
		// expiration 0 also drops a TTL left by an earlier write
		if err := r.rdb.Set(ctx, redisKey(profile, key), value, 0).Err(); err != nil {
			return fmt.Errorf("failed to save slot: %w", err)
		}
		return nil
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(profile, key), value, r.ttl)
		for _, other := range profileKeys {
			if other != key {
				pipe.Expire(ctx, redisKey(profile, other), r.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save slot: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, profile, key string) error {
	if err := r.rdb.Del(ctx, redisKey(profile, key)).Err(); err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}
