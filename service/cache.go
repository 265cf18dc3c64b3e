package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
)

// DefaultCacheTTL is how long a cached GET response is served.
const DefaultCacheTTL = 5 * time.Minute

// DefaultCacheSize bounds the number of cached responses per service.
const DefaultCacheSize = 1000

// CacheEntry is one cached response.
type CacheEntry struct {
	Data      []byte
	Timestamp time.Time
	TTL       time.Duration
}

// Expired reports whether the entry is past its TTL at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.Sub(e.Timestamp) > e.TTL
}

// responseCache is a bounded W-TinyLFU store with lazy TTL eviction.
// Keys are stored under the owning service's prefix.
type responseCache struct {
	store  *otter.Cache[string, CacheEntry]
	prefix string
	now    func() time.Time
}

func newResponseCache(prefix string, size int, now func() time.Time) *responseCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &responseCache{
		store: otter.Must(&otter.Options[string, CacheEntry]{
			MaximumSize: size,
		}),
		prefix: prefix,
		now:    now,
	}
}

// get returns the live entry for key. An expired entry is removed.
func (c *responseCache) get(key string) ([]byte, bool) {
	k := c.prefix + key
	e, ok := c.store.GetIfPresent(k)
	if !ok {
		return nil, false
	}
	if e.Expired(c.now()) {
		c.store.Invalidate(k)
		return nil, false
	}
	return e.Data, true
}

func (c *responseCache) set(key string, data []byte, ttl time.Duration) {
	c.store.Set(c.prefix+key, CacheEntry{
		Data:      data,
		Timestamp: c.now(),
		TTL:       ttl,
	})
}

func (c *responseCache) clear() {
	c.store.InvalidateAll()
}

// invalidate removes every entry whose key matches pattern and returns how
// many were removed.
func (c *responseCache) invalidate(pattern *regexp.Regexp) int {
	var matched []string
	for k := range c.store.Keys() {
		if pattern.MatchString(strings.TrimPrefix(k, c.prefix)) {
			matched = append(matched, k)
		}
	}

	n := 0
	for _, k := range matched {
		if _, ok := c.store.Invalidate(k); ok {
			n++
		}
	}
	return n
}
