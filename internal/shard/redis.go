package shard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "museum:shard:"

// RedisStore keeps shards per user with a TTL. A sorted set scored by expiry indexes each user's
// shards so listing does not need to scan the keyspace.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func shardKey(uid, id string) string {
	return keyPrefix + uid + ":" + id
}

func indexKey(uid string) string {
	return keyPrefix + uid
}

// Add stores s and fills in its timestamps.
func (r *RedisStore) Add(ctx context.Context, uid string, s Shard) (Shard, error) {
	now := r.now()
	s.CreatedAt = now.UnixMilli()
	s.ExpiresAt = now.Add(r.ttl).UnixMilli()

	raw, err := json.Marshal(s)
	if err != nil {
		return Shard{}, fmt.Errorf("encode shard: %w", err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, shardKey(uid, s.ID), raw, r.ttl)
		p.ZAdd(ctx, indexKey(uid), redis.Z{Score: float64(s.ExpiresAt), Member: s.ID})
		p.Expire(ctx, indexKey(uid), r.ttl)
		return nil
	})
	if err != nil {
		return Shard{}, fmt.Errorf("store shard: %w", err)
	}
	return s, nil
}

// List returns the live shards of uid, newest first.
func (r *RedisStore) List(ctx context.Context, uid string) ([]Shard, error) {
	now := strconv.FormatInt(r.now().UnixMilli(), 10)
	if err := r.rdb.ZRemRangeByScore(ctx, indexKey(uid), "-inf", now).Err(); err != nil {
		return nil, fmt.Errorf("trim shard index: %w", err)
	}

	ids, err := r.rdb.ZRevRange(ctx, indexKey(uid), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read shard index: %w", err)
	}

	shards := []Shard{}
	if len(ids) == 0 {
		return shards, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = shardKey(uid, id)
	}

	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read shards: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var s Shard
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("decode shard: %w", err)
		}
		shards = append(shards, s)
	}
	return shards, nil
}

func (r *RedisStore) Get(ctx context.Context, uid, id string) (Shard, error) {
	raw, err := r.rdb.Get(ctx, shardKey(uid, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Shard{}, ErrNotFound
		}
		return Shard{}, fmt.Errorf("read shard: %w", err)
	}

	var s Shard
	if err := json.Unmarshal(raw, &s); err != nil {
		return Shard{}, fmt.Errorf("decode shard: %w", err)
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, uid, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, shardKey(uid, id))
		p.ZRem(ctx, indexKey(uid), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete shard: %w", err)
	}
	return nil
}
