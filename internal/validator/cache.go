package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"sqlguard/internal/model"
)

// Default cache sizing. The TTL is short on purpose: the cache absorbs
// validation bursts for one statement, it is not a long-lived result store.
const (
	DefaultCacheCapacity = 1000
	DefaultCacheTTL      = 100 * time.Millisecond
)

// Fingerprint derives the cache key for one validation call. Only the
// statement identity and the raw SQL text participate; bound parameter
// values never do, so two calls of the same statement share one entry.
func Fingerprint(statementID, sql string) string {
	h := sha256.New()
	h.Write([]byte(statementID))
	h.Write([]byte{0})
	h.Write([]byte(sql))
	return hex.EncodeToString(h.Sum(nil))
}

// ResultCache is a bounded TTL cache of validation results, safe for
// concurrent use. Results are cloned on store and on hit so no caller ever
// holds a reference into the cached copy.
type ResultCache struct {
	lru *expirable.LRU[string, *model.ValidationResult]
}

// NewResultCache constructs a cache with the given capacity and entry TTL.
// Non-positive values fall back to the defaults.
func NewResultCache(capacity int, ttl time.Duration) *ResultCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *model.ValidationResult](capacity, nil, ttl),
	}
}

// Get returns a copy of the cached result for key, or nil on a miss.
func (c *ResultCache) Get(key string) *model.ValidationResult {
	res, ok := c.lru.Get(key)
	if !ok {
		return nil
	}
	return res.Clone()
}

// Put stores a copy of the result under key. Concurrent writers for the
// same key race last-write-wins; both wrote equivalent results.
func (c *ResultCache) Put(key string, res *model.ValidationResult) {
	c.lru.Add(key, res.Clone())
}

// Len returns the current number of live entries.
func (c *ResultCache) Len() int {
	return c.lru.Len()
}
