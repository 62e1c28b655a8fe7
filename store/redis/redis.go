package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/ryhazerus/throttle/store"
)

// Compile-time interface check.
var _ store.Store = (*RedisStore)(nil)

const (
	keyPrefix = "throttle:usage:"
	indexKey  = "throttle:usage-keys"
)

// RedisStore is a Store backed by Redis. Each counter key is a Redis hash
// mapping bucket keys to counts; a set indexes the counter keys for List.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// addScript increments a bucket and indexes the counter key in one step.
//
// KEYS[1] = counter hash
// KEYS[2] = index set
// ARGV[1] = bucket key
// ARGV[2] = amount
// ARGV[3] = counter key as stored in the index
var addScript = redis.NewScript(`
local count = redis.call("HINCRBY", KEYS[1], ARGV[1], tonumber(ARGV[2]))
redis.call("SADD", KEYS[2], ARGV[3])
return count
`)

// Add atomically adds n to the counter for key in bucket b.
func (r *RedisStore) Add(ctx context.Context, key string, b store.Bucket, n int64) (int64, error) {
	result, err := addScript.Run(ctx, r.client, []string{redisKey(key), indexKey}, b.Key, n, key).Int64()
	if err != nil {
		return 0, fmt.Errorf("throttle/store/redis: add: %w", err)
	}
	return result, nil
}

// Get returns the counter for key in bucket b.
func (r *RedisStore) Get(ctx context.Context, key string, b store.Bucket) (int64, error) {
	val, err := r.client.HGet(ctx, redisKey(key), b.Key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("throttle/store/redis: get: %w", err)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("throttle/store/redis: parse count: %w", err)
	}
	return count, nil
}

// List returns every counter ordered by key, then bucket.
func (r *RedisStore) List(ctx context.Context) ([]store.Entry, error) {
	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("throttle/store/redis: list keys: %w", err)
	}

	var out []store.Entry
	for _, key := range keys {
		vals, err := r.client.HGetAll(ctx, redisKey(key)).Result()
		if err != nil {
			return nil, fmt.Errorf("throttle/store/redis: list %s: %w", key, err)
		}
		for bucketKey, raw := range vals {
			b, err := store.ParseBucket(bucketKey)
			if err != nil {
				return nil, fmt.Errorf("throttle/store/redis: bucket %q: %w", bucketKey, err)
			}
			count, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("throttle/store/redis: parse count: %w", err)
			}
			out = append(out, store.Entry{Key: key, Bucket: b, Count: count})
		}
	}
	store.SortEntries(out)
	return out, nil
}

// Reset removes all buckets for the given key.
func (r *RedisStore) Reset(ctx context.Context, key string) error {
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, redisKey(key))
		p.SRem(ctx, indexKey, key)
		return nil
	})
	return err
}

// Close closes the underlying Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(key string) string {
	return keyPrefix + key
}
