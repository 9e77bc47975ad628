package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.opentelemetry.io/otel"

	"github.com/theinterneti/loom/internal/telemetry"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 1024
)

// KeyFunc derives the cache key for an input. Inputs mapping to the same key
// share a cached result.
type KeyFunc func(ctx context.Context, input any) (string, error)

// CacheOption configures a Cache primitive.
type CacheOption func(*CachePrimitive)

// WithTTL sets how long a cached result stays valid. Zero disables expiry.
// Expired entries are dropped lazily when read or when eviction runs.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CachePrimitive) { c.ttl = ttl }
}

// WithMaxEntries caps how many results the cache holds before evicting the
// least recently used entry.
func WithMaxEntries(n int) CacheOption {
	return func(c *CachePrimitive) { c.maxEntries = n }
}

// WithKeyFunc replaces the default Fingerprint-based key derivation.
func WithKeyFunc(fn KeyFunc) CacheOption {
	return func(c *CachePrimitive) { c.keyFn = fn }
}

// CacheStats is a point-in-time snapshot of a cache's counters.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachePrimitive memoizes the wrapped primitive's successful results keyed
// by input. Failures are never cached. The mutex spans the whole
// lookup-invoke-insert path, so concurrent calls with the same key compute
// the result once; callers needing concurrent misses should shard across
// cache instances.
type CachePrimitive struct {
	name       string
	wrapped    Primitive
	keyFn      KeyFunc
	ttl        time.Duration
	maxEntries int

	mu    sync.Mutex
	store *simplelru.LRU[string, cacheEntry]

	hits    atomic.Int64
	misses  atomic.Int64
	metrics *telemetry.Instruments
}

// Cache wraps p with result memoization. Defaults: five minute TTL, 1024
// entries, Fingerprint keys.
func Cache(name string, p Primitive, opts ...CacheOption) *CachePrimitive {
	if name == "" {
		panic("loom: cache name must not be empty")
	}
	if p == nil {
		panic(fmt.Sprintf("loom: cache %q wraps a nil primitive", name))
	}
	c := &CachePrimitive{
		name:       name,
		wrapped:    p,
		ttl:        defaultCacheTTL,
		maxEntries: defaultCacheMaxEntries,
		metrics:    telemetry.New(otel.GetMeterProvider()),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.ttl < 0 {
		panic(fmt.Sprintf("loom: cache %q needs a non-negative TTL", name))
	}
	if c.maxEntries <= 0 {
		panic(fmt.Sprintf("loom: cache %q needs a positive entry limit", name))
	}
	if c.keyFn == nil {
		c.keyFn = func(_ context.Context, input any) (string, error) {
			return Fingerprint(input)
		}
	}
	store, err := simplelru.NewLRU[string, cacheEntry](c.maxEntries, nil)
	if err != nil {
		panic(fmt.Sprintf("loom: cache %q: %v", name, err))
	}
	c.store = store
	return c
}

func (c *CachePrimitive) Name() string { return c.name }
func (c *CachePrimitive) Kind() string { return KindCache }

func (c *CachePrimitive) Execute(ctx context.Context, input any) (any, error) {
	key, err := c.keyFn(ctx, input)
	if err != nil {
		return nil, &ValidationError{Primitive: c.name, Reason: "cache key derivation failed", Cause: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.store.Get(key); ok {
		if c.ttl == 0 || time.Now().Before(entry.expiresAt) {
			c.hits.Add(1)
			c.metrics.CacheHit(ctx, c.name)
			return entry.value, nil
		}
		c.store.Remove(key)
	}
	c.misses.Add(1)
	c.metrics.CacheMiss(ctx, c.name)

	out, err := Invoke(ctx, c.wrapped, input)
	if err != nil {
		return nil, err
	}
	entry := cacheEntry{value: out}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	if c.store.Len() >= c.maxEntries {
		c.evict()
	}
	c.store.Add(key, entry)
	return out, nil
}

// evict drops expired entries first so size pressure never displaces a live
// entry while dead ones remain, then falls back to LRU eviction.
func (c *CachePrimitive) evict() {
	if c.ttl > 0 {
		now := time.Now()
		for _, key := range c.store.Keys() {
			if entry, ok := c.store.Peek(key); ok && !now.Before(entry.expiresAt) {
				c.store.Remove(key)
			}
		}
	}
	if c.store.Len() >= c.maxEntries {
		c.store.RemoveOldest()
	}
}

// Stats reports the cache's hit, miss, and occupancy counters.
func (c *CachePrimitive) Stats() CacheStats {
	c.mu.Lock()
	entries := c.store.Len()
	c.mu.Unlock()
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: entries,
	}
}

// Purge empties the cache without touching the hit and miss counters.
func (c *CachePrimitive) Purge() {
	c.mu.Lock()
	c.store.Purge()
	c.mu.Unlock()
}
