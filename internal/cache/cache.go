// Package cache provides bounded, expiring key/value stores used by the
// embedding and response caches.
package cache

import (
	"context"
	"time"
)

// Eviction reasons passed to Options.OnEvict
const (
	EvictExpired  = "expired"
	EvictCapacity = "capacity"
)

// DefaultEvictFraction is the share of entries dropped when a store overflows
const DefaultEvictFraction = 0.2

// Store is a bounded cache with time-based expiry.
// An expired entry is a miss, never an error.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V) error
	Delete(ctx context.Context, key string) error
	// Sweep removes expired entries and returns how many were removed
	Sweep(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Options() Options
	Close() error
}

// Options configures a Store
type Options struct {
	TTL           time.Duration
	MaxEntries    int
	EvictFraction float64
	Clock         func() time.Time
	OnEvict       func(key, reason string)
}

func (o Options) withDefaults() Options {
	if o.EvictFraction <= 0 || o.EvictFraction > 1 {
		o.EvictFraction = DefaultEvictFraction
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// evictCount is how many of n entries an overflowing store drops: floor(n*fraction), at least one
func evictCount(n int, fraction float64) int {
	count := int(float64(n) * fraction)
	if count < 1 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}
