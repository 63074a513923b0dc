package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type memoryEntry[V any] struct {
	value      V
	insertedAt time.Time
}

// MemoryStore is a process-local Store backed by go-cache.
// Expiry is judged against the injected clock rather than go-cache's janitor.
type MemoryStore[V any] struct {
	items *gocache.Cache
	opts  Options
	mu    sync.Mutex
}

// NewMemoryStore creates an in-memory store
func NewMemoryStore[V any](opts Options) *MemoryStore[V] {
	return &MemoryStore[V]{
		items: gocache.New(gocache.NoExpiration, 0),
		opts:  opts.withDefaults(),
	}
}

func (s *MemoryStore[V]) expired(e memoryEntry[V], now time.Time) bool {
	return s.opts.TTL > 0 && now.Sub(e.insertedAt) >= s.opts.TTL
}

func (s *MemoryStore[V]) evicted(key, reason string) {
	if s.opts.OnEvict != nil {
		s.opts.OnEvict(key, reason)
	}
}

// Get returns a fresh value. Expired entries are dropped and reported as a miss.
func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	var zero V

	raw, found := s.items.Get(key)
	if !found {
		return zero, false, nil
	}
	entry, ok := raw.(memoryEntry[V])
	if !ok {
		return zero, false, nil
	}

	if s.expired(entry, s.opts.Clock()) {
		s.mu.Lock()
		// re-check under the lock so a concurrent Set is not discarded
		if current, ok := s.items.Get(key); ok {
			if e, ok := current.(memoryEntry[V]); ok && s.expired(e, s.opts.Clock()) {
				s.items.Delete(key)
				s.mu.Unlock()
				s.evicted(key, EvictExpired)
				return zero, false, nil
			}
		}
		s.mu.Unlock()
		return zero, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value stamped with the current time and trims the store when it overflows
func (s *MemoryStore[V]) Set(_ context.Context, key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items.Set(key, memoryEntry[V]{value: value, insertedAt: s.opts.Clock()}, gocache.NoExpiration)

	if s.opts.MaxEntries > 0 && s.items.ItemCount() > s.opts.MaxEntries {
		s.trimLocked()
	}
	return nil
}

// trimLocked evicts the oldest entries by insertion time
func (s *MemoryStore[V]) trimLocked() {
	type aged struct {
		key        string
		insertedAt time.Time
	}

	items := s.items.Items()
	entries := make([]aged, 0, len(items))
	for k, item := range items {
		if e, ok := item.Object.(memoryEntry[V]); ok {
			entries = append(entries, aged{key: k, insertedAt: e.insertedAt})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].insertedAt.Equal(entries[j].insertedAt) {
			return entries[i].key < entries[j].key
		}
		return entries[i].insertedAt.Before(entries[j].insertedAt)
	})

	n := evictCount(len(entries), s.opts.EvictFraction)
	for _, e := range entries[:n] {
		s.items.Delete(e.key)
		s.evicted(e.key, EvictCapacity)
	}
}

// Delete removes a key
func (s *MemoryStore[V]) Delete(_ context.Context, key string) error {
	s.items.Delete(key)
	return nil
}

// Sweep removes every expired entry
func (s *MemoryStore[V]) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.opts.Clock()
	removed := 0
	for k, item := range s.items.Items() {
		e, ok := item.Object.(memoryEntry[V])
		if !ok || s.expired(e, now) {
			s.items.Delete(k)
			s.evicted(k, EvictExpired)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, including ones not yet swept
func (s *MemoryStore[V]) Len(_ context.Context) (int, error) {
	return s.items.ItemCount(), nil
}

// Clear drops every entry
func (s *MemoryStore[V]) Clear(_ context.Context) error {
	s.items.Flush()
	return nil
}

// Options returns the effective store options
func (s *MemoryStore[V]) Options() Options {
	return s.opts
}

// Close is a no-op for the in-memory store
func (s *MemoryStore[V]) Close() error {
	return nil
}
