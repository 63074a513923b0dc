// Package ratelimit implements fixed-window request counters and the tiered
// admission decision built on top of them.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Result is the state of a window after one hit
type Result struct {
	Count   int64
	ResetIn time.Duration
}

// Counter counts hits per key in fixed windows. Hit is atomic per key.
// Peek reports the current window without counting.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (Result, error)
	Peek(ctx context.Context, key string, window time.Duration) (Result, error)
}

type window struct {
	start time.Time
	size  time.Duration
	count int64
}

// MemoryCounter is a process-local fixed-window counter
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewMemoryCounter creates an in-memory counter. A nil clock uses time.Now.
func NewMemoryCounter(now func() time.Time) *MemoryCounter {
	if now == nil {
		now = time.Now
	}
	return &MemoryCounter{
		windows: make(map[string]*window),
		now:     now,
	}
}

// Hit counts one request for key, starting a new window once the previous one has elapsed
func (c *MemoryCounter) Hit(_ context.Context, key string, size time.Duration) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) >= w.size {
		w = &window{start: now, size: size}
		c.windows[key] = w
	}
	w.count++

	return Result{Count: w.count, ResetIn: w.start.Add(w.size).Sub(now)}, nil
}

// Peek returns the count of the current window for key; an elapsed or unseen window reads as zero
func (c *MemoryCounter) Peek(_ context.Context, key string, size time.Duration) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || now.Sub(w.start) >= w.size {
		return Result{Count: 0, ResetIn: size}, nil
	}
	return Result{Count: w.count, ResetIn: w.start.Add(w.size).Sub(now)}, nil
}

// Prune drops windows that have elapsed and returns how many were removed
func (c *MemoryCounter) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, w := range c.windows {
		if now.Sub(w.start) >= w.size {
			delete(c.windows, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows
func (c *MemoryCounter) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// hitScript increments the key, starts its expiry on the first hit and returns count and remaining ms
var hitScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisCounter shares fixed windows between instances
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCounter creates a Redis-backed counter with keys under prefix
func NewRedisCounter(client redis.UniversalClient, prefix string) *RedisCounter {
	return &RedisCounter{client: client, prefix: prefix}
}

// Hit counts one request for key atomically on the server
func (c *RedisCounter) Hit(ctx context.Context, key string, size time.Duration) (Result, error) {
	vals, err := hitScript.Run(ctx, c.client, []string{c.prefix + key}, size.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("rate counter: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate counter: unexpected reply %v", vals)
	}
	return Result{Count: vals[0], ResetIn: time.Duration(vals[1]) * time.Millisecond}, nil
}

// Peek reads the current count and remaining window time without incrementing
func (c *RedisCounter) Peek(ctx context.Context, key string, size time.Duration) (Result, error) {
	pipe := c.client.Pipeline()
	countCmd := pipe.Get(ctx, c.prefix+key)
	ttlCmd := pipe.PTTL(ctx, c.prefix+key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Result{}, fmt.Errorf("rate counter: %w", err)
	}

	count, err := countCmd.Int64()
	if errors.Is(err, redis.Nil) {
		return Result{Count: 0, ResetIn: size}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("rate counter: %w", err)
	}

	resetIn := ttlCmd.Val()
	if resetIn <= 0 {
		resetIn = size
	}
	return Result{Count: count, ResetIn: resetIn}, nil
}
