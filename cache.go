package atlas

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// cacheEntry is a cached GET response with expiry.
type cacheEntry struct {
	body      json.RawMessage
	expiresAt time.Time
	createdAt time.Time
}

// responseCache caches successful GET responses for a short TTL.
// The credential is part of every key, so a login or logout naturally
// partitions the cache and a new user can never see the old user's data.
type responseCache struct {
	ttl     time.Duration
	maxSize int

	mu      sync.Mutex
	entries map[uint64]*cacheEntry
}

func newResponseCache(ttl time.Duration, maxSize int) *responseCache {
	return &responseCache{
		ttl:     ttl,
		maxSize: maxSize,
		entries: make(map[uint64]*cacheEntry),
	}
}

// cacheKey hashes method, path, and credential into one lookup key.
func cacheKey(method, path, credential string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(method)
	_, _ = h.Write([]byte{0}) // separator
	_, _ = h.WriteString(path)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(credential)
	return h.Sum64()
}

// get returns the cached body if present and not expired.
func (c *responseCache) get(key uint64) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.body, true
}

// put stores a response. When the cache is full it first drops expired
// entries, then the oldest one.
func (c *responseCache) put(key uint64, body json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxSize {
		now := time.Now()
		for k, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, k)
			}
		}
		if len(c.entries) >= c.maxSize {
			var oldest time.Time
			var oldestKey uint64
			for k, entry := range c.entries {
				if oldest.IsZero() || entry.createdAt.Before(oldest) {
					oldest = entry.createdAt
					oldestKey = k
				}
			}
			delete(c.entries, oldestKey)
		}
	}

	now := time.Now()
	c.entries[key] = &cacheEntry{
		body:      body,
		expiresAt: now.Add(c.ttl),
		createdAt: now,
	}
}
