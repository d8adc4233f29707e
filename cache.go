package csvpave

import (
	"sync"
	"sync/atomic"
)

// Cache is a concurrent, build-once map. The factory for a key runs at most
// once, even when many goroutines ask for the same key at the same time; all
// of them observe the same value and error.
type Cache[K comparable, V any] struct {
	cache sync.Map // map[K]*CacheEntry[V]
}

// CacheEntry holds a built value, or the error that building it returned.
type CacheEntry[V any] struct {
	once  sync.Once
	ready atomic.Bool
	data  V
	err   error
}

// NewCache creates an empty cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{}
}

// GetOrCreate returns the value stored for key, building it with factory on
// first use.
func (c *Cache[K, V]) GetOrCreate(key K, factory func() (V, error)) (V, error) {
	v, ok := c.cache.Load(key)
	if !ok {
		v, _ = c.cache.LoadOrStore(key, &CacheEntry[V]{})
	}
	entry := v.(*CacheEntry[V])

	entry.once.Do(func() {
		entry.data, entry.err = factory()
		entry.ready.Store(true)
	})
	return entry.data, entry.err
}

// Get returns the value for key if it has been built successfully.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var zero V
	v, ok := c.cache.Load(key)
	if !ok {
		return zero, false
	}
	entry := v.(*CacheEntry[V])
	if !entry.ready.Load() || entry.err != nil {
		return zero, false
	}
	return entry.data, true
}

// Delete removes the entry for key.
func (c *Cache[K, V]) Delete(key K) {
	c.cache.Delete(key)
}

// Clear removes all entries.
func (c *Cache[K, V]) Clear() {
	c.cache.Clear()
}

// Len counts the entries, built or not.
func (c *Cache[K, V]) Len() int {
	n := 0
	c.cache.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
