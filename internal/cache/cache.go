// Package cache holds backend prediction responses for a short time so
// repeat visits to a results page do not re-run the analysis.
package cache

import (
	"strings"
	"sync"
	"time"
)

// PredictionTag groups every cached prediction response. A new upload
// invalidates the whole tag.
const PredictionTag = "get_loan_prediction_endpoint"

// CachedResponse is a raw backend response body.
type CachedResponse struct {
	StatusCode int
	Body       []byte
	StoredAt   time.Time
}

type entry struct {
	resp   *CachedResponse
	expiry time.Time
	seq    int64
}

// ResponseCache is a bounded TTL cache keyed by "tag:key".
// Safe for concurrent use.
type ResponseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	seq        int64
	now        func() time.Time
}

// New creates a ResponseCache. A non-positive maxEntries means one entry.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &ResponseCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey joins a tag and a resource key.
func MakeKey(tag, key string) string {
	return tag + ":" + key
}

// Get returns a live entry.
func (c *ResponseCache) Get(key string) (*CachedResponse, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().After(e.expiry) {
		c.mu.Lock()
		if cur, ok := c.items[key]; ok && c.now().After(cur.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.resp, true
}

// Set stores resp under key, evicting the oldest entry when full.
func (c *ResponseCache) Set(key string, resp *CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if resp.StoredAt.IsZero() {
		resp.StoredAt = c.now()
	}
	e := entry{resp: resp, expiry: c.now().Add(c.ttl), seq: c.seq}
	c.seq++

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = e
}

// Delete removes one key.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// InvalidateTag removes every entry stored under tag and returns how many
// were dropped.
func (c *ResponseCache) InvalidateTag(tag string) int {
	prefix := tag + ":"

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest must be called with mu held.
func (c *ResponseCache) evictOldest() {
	oldestKey := ""
	var oldest int64 = -1
	for key, e := range c.items {
		if oldest == -1 || e.seq < oldest {
			oldest = e.seq
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
