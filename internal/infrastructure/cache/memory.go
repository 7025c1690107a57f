package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/AnshSingh-2024/COMMIT.ENV/internal/domain"
)

// DefaultCleanupInterval is how often expired entries are swept
const DefaultCleanupInterval = 10 * time.Minute

// MemoryCache is a thread-safe in-process cache with TTL support
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		store: gocache.New(gocache.NoExpiration, DefaultCleanupInterval),
	}
}

// Get retrieves a value from the cache
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, found := c.store.Get(key)
	if !found {
		return nil, domain.ErrCacheMiss
	}

	value, ok := v.([]byte)
	if !ok {
		return nil, domain.ErrCacheMiss
	}

	return value, nil
}

// Set stores a copy of value with the given TTL. A non-positive TTL keeps
// the entry until it is deleted.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	c.store.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

// Exists checks if a key exists in the cache and is not expired
func (c *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	_, found := c.store.Get(key)
	return found, nil
}

// Size returns the number of stored items, expired ones included until swept
func (c *MemoryCache) Size() int {
	return c.store.ItemCount()
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.store.Flush()
}
