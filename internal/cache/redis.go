package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store shared between instances. Values are JSON encoded,
// Redis expires keys natively and a sorted set indexes keys by insertion time.
type RedisStore[V any] struct {
	client redis.UniversalClient
	prefix string
	index  string
	opts   Options
}

// NewRedisStore creates a Redis-backed store whose keys live under prefix
func NewRedisStore[V any](client redis.UniversalClient, prefix string, opts Options) *RedisStore[V] {
	return &RedisStore[V]{
		client: client,
		prefix: prefix + ":",
		index:  prefix + ":index",
		opts:   opts.withDefaults(),
	}
}

func (s *RedisStore[V]) key(k string) string {
	return s.prefix + k
}

// Get returns a stored value; a missing or expired key is a miss
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("cache get: %w", err)
	}

	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		// Undecodable entries are dropped and treated as a miss
		s.client.Del(ctx, s.key(key))
		return zero, false, nil
	}
	return value, true, nil
}

// Set stores a value with the store TTL and trims the oldest entries on overflow
func (s *RedisStore[V]) Set(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	now := s.opts.Clock()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(key), data, s.opts.TTL)
	pipe.ZAdd(ctx, s.index, redis.Z{Score: float64(now.UnixMilli()), Member: key})
	card := pipe.ZCard(ctx, s.index)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	if s.opts.MaxEntries > 0 && int(card.Val()) > s.opts.MaxEntries {
		return s.trim(ctx, int(card.Val()))
	}
	return nil
}

func (s *RedisStore[V]) trim(ctx context.Context, size int) error {
	n := evictCount(size, s.opts.EvictFraction)
	oldest, err := s.client.ZRange(ctx, s.index, 0, int64(n-1)).Result()
	if err != nil {
		return fmt.Errorf("cache trim: %w", err)
	}
	if len(oldest) == 0 {
		return nil
	}
	if err := s.remove(ctx, oldest); err != nil {
		return err
	}
	for _, k := range oldest {
		if s.opts.OnEvict != nil {
			s.opts.OnEvict(k, EvictCapacity)
		}
	}
	return nil
}

func (s *RedisStore[V]) remove(ctx context.Context, keys []string) error {
	full := make([]string, len(keys))
	members := make([]interface{}, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
		members[i] = k
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, full...)
	pipe.ZRem(ctx, s.index, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache remove: %w", err)
	}
	return nil
}

// Delete removes a key
func (s *RedisStore[V]) Delete(ctx context.Context, key string) error {
	return s.remove(ctx, []string{key})
}

// Sweep drops index members whose keys Redis has already expired
func (s *RedisStore[V]) Sweep(ctx context.Context) (int, error) {
	if s.opts.TTL <= 0 {
		return 0, nil
	}
	cutoff := s.opts.Clock().Add(-s.opts.TTL).UnixMilli()
	removed, err := s.client.ZRemRangeByScore(ctx, s.index, "-inf", strconv.FormatInt(cutoff, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	return int(removed), nil
}

// Len returns the number of indexed entries
func (s *RedisStore[V]) Len(ctx context.Context) (int, error) {
	n, err := s.client.ZCard(ctx, s.index).Result()
	if err != nil {
		return 0, fmt.Errorf("cache len: %w", err)
	}
	return int(n), nil
}

// Clear removes every entry under the prefix
func (s *RedisStore[V]) Clear(ctx context.Context) error {
	keys, err := s.client.ZRange(ctx, s.index, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	if len(keys) > 0 {
		if err := s.remove(ctx, keys); err != nil {
			return err
		}
	}
	return s.client.Del(ctx, s.index).Err()
}

// Options returns the effective store options
func (s *RedisStore[V]) Options() Options {
	return s.opts
}

// Close leaves the shared client open; its owner closes it
func (s *RedisStore[V]) Close() error {
	return nil
}

var _ Store[string] = (*RedisStore[string])(nil)
var _ Store[string] = (*MemoryStore[string])(nil)
