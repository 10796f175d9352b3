package serpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache keeps successful raw responses for a limited time, evicting the
// least recently used entry once full.
type Cache struct {
	lru *expirable.LRU[string, []byte]
}

// NewCache creates a new response cache
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{lru: expirable.NewLRU[string, []byte](maxSize, nil, ttl)}
}

// CacheKey is the canonical, sorted query without credentials.
func CacheKey(params url.Values) string {
	clean := make(url.Values, len(params))
	for k, v := range params {
		if k == "api_key" {
			continue
		}
		clean[k] = v
	}
	return clean.Encode()
}

// ScopedCacheKey binds CacheKey to the API key that paid for the response,
// so callers with different keys never share entries.
func ScopedCacheKey(params url.Values, token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8]) + "|" + CacheKey(params)
}

// Get returns the raw body cached for key
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set adds a raw body to the cache
func (c *Cache) Set(key string, raw []byte) {
	c.lru.Add(key, raw)
}

// Size returns the number of live entries
func (c *Cache) Size() int {
	return c.lru.Len()
}
