package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// Fetcher retrieves the body at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Cache stores response bodies by key. Implementations treat backend
// failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Put(ctx context.Context, key, value string)
}

// Cacheable reports whether a successfully fetched body may be stored.
type Cacheable func(url, body string) bool

// CachedFetcher wraps a Fetcher with a response cache. Only successful
// bodies accepted by the Cacheable predicate are stored; everything else is
// fetched again on the next call.
type CachedFetcher struct {
	inner     Fetcher
	cache     Cache
	cacheable Cacheable
	metrics   *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. A nil
// cacheable stores every successful body.
func NewCachedFetcher(inner Fetcher, cache Cache, cacheable Cacheable, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{inner: inner, cache: cache, cacheable: cacheable, metrics: metrics}
}

func (c *CachedFetcher) Fetch(ctx context.Context, url string) (string, error) {
	key := cacheKey(url)
	if body, ok := c.cache.Get(ctx, key); ok {
		c.metrics.CacheResults.WithLabelValues("hit").Inc()
		return body, nil
	}
	c.metrics.CacheResults.WithLabelValues("miss").Inc()

	body, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	if c.cacheable == nil || c.cacheable(url, body) {
		c.cache.Put(ctx, key, body)
	}
	return body, nil
}

// cacheKey hashes the URL so query-string credentials never reach the cache.
func cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "page:" + hex.EncodeToString(sum[:])
}

// LRUCache is a simple thread-safe in-process LRU cache.
type LRUCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value string
	prev  *entry
	next  *entry
}

// NewLRUCache creates an LRU cache bounded to maxEntries (minimum 1).
func NewLRUCache(maxEntries int) *LRUCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRUCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *LRUCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *LRUCache) Put(_ context.Context, key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len reports the number of cached entries.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *LRUCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRUCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *LRUCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
