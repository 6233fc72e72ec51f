package enhance

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
)

const cacheCeiling = 1000

// Fingerprint derives the cache key from the normalized prompt text
// plus technique and output format.
func Fingerprint(prompt, technique, format string) string {
	normalized := strings.ToLower(strings.TrimSpace(prompt))
	sum := sha256.Sum256([]byte(normalized + "|" + technique + "|" + format))
	return fmt.Sprintf("%x", sum)
}

// Cache is an in-process result cache with an unbounded-growth guard:
// past the ceiling it drops the oldest half of entries by insertion
// order. Insertion order is a proxy for age, not true LRU; frequently
// re-read old entries are evicted ahead of rarely-read new ones, which
// is an accepted simplification.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Result
	order   []string
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Get returns a copy of the cached result so callers can adjust
// metadata without corrupting the stored entry.
func (c *Cache) Get(key string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

func (c *Cache) Put(key string, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	cp := *r
	c.entries[key] = &cp

	if len(c.entries) > cacheCeiling {
		drop := len(c.order) / 2
		for _, old := range c.order[:drop] {
			delete(c.entries, old)
		}
		c.order = append([]string(nil), c.order[drop:]...)
	}
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
