package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem[T any] struct {
	Value      T
	StoredAt   time.Time
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory cache with TTL support.
// Expired entries are kept so callers can fall back to a stale value.
type MemoryCache[T any] struct {
	data  map[string]cacheItem[T]
	mutex sync.RWMutex
	now   func() time.Time
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache[T any]() *MemoryCache[T] {
	return &MemoryCache[T]{
		data: make(map[string]cacheItem[T]),
		now:  time.Now,
	}
}

// SetClock replaces the time source (tests)
func (c *MemoryCache[T]) SetClock(now func() time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
}

// Get retrieves a value that has not expired yet
func (c *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var zero T
	item, exists := c.data[key]
	if !exists {
		return zero, domain.ErrCacheMiss
	}

	// Check if expired
	if !c.now().Before(item.Expiration) {
		return zero, domain.ErrCacheMiss
	}

	return item.Value, nil
}

// GetStale retrieves a value regardless of expiration, along with the time it was stored
func (c *MemoryCache[T]) GetStale(ctx context.Context, key string) (T, time.Time, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		var zero T
		return zero, time.Time{}, domain.ErrCacheMiss
	}

	return item.Value, item.StoredAt, nil
}

// Set stores a value in the cache with TTL
func (c *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	c.data[key] = cacheItem[T]{
		Value:      value,
		StoredAt:   now,
		Expiration: now.Add(ttl),
	}

	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	return nil
}
