package oracle

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// CacheConfig configures the oracle result cache: a plain TTL/capacity
// pair, with none of the similarity-threshold or embedding-related
// fields an exact-match cache has no use for.
type CacheConfig struct {
	DefaultTTL time.Duration
	MaxEntries int
}

// DefaultCacheConfig gives the oracle result cache sane production
// defaults: a short TTL, since sentiment labels should track the
// feed rather than stick around indefinitely.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL: time.Hour,
		MaxEntries: 10000,
	}
}

type cacheEntry struct {
	label     Label
	createdAt time.Time
	expiresAt time.Time
	hitCount  int64
}

// CacheStats tracks hit/miss metrics for the result cache.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int64
	HitRatePct float64
}

// ResultCache is an exact-text-match cache in front of a
// SentimentOracle: identical cleaned text (hashed) within TTL never
// needs a second classifier call. Sentiment classification has no
// notion of "close enough" text, so there's no embedding/cosine
// similarity search here — just an exact-hash fast path, oldest-entry
// eviction and stats bookkeeping, in one flat map with no namespacing.
type ResultCache struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	config CacheConfig

	entries map[string]*cacheEntry

	hits      int64
	misses    int64
	evictions int64
}

// NewResultCache builds a cache with the given config.
func NewResultCache(logger zerolog.Logger, config ...CacheConfig) *ResultCache {
	cfg := DefaultCacheConfig()
	if len(config) > 0 {
		cfg = config[0]
	}
	return &ResultCache{
		logger:  logger.With().Str("component", "oracle_cache").Logger(),
		config:  cfg,
		entries: make(map[string]*cacheEntry),
	}
}

// Lookup returns a cached label for text if one is present and not
// expired.
func (c *ResultCache) Lookup(text string) (Label, bool) {
	key := hashText(text)
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || entry.expiresAt.Before(time.Now()) {
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}
	atomic.AddInt64(&c.hits, 1)
	atomic.AddInt64(&entry.hitCount, 1)
	return entry.label, true
}

// Store records a classifier result for text.
func (c *ResultCache) Store(text string, label Label) {
	key := hashText(text)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.config.MaxEntries {
		c.evictOldestLocked()
	}
	c.entries[key] = &cacheEntry{
		label:     label,
		createdAt: now,
		expiresAt: now.Add(c.config.DefaultTTL),
	}
}

func (c *ResultCache) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// FlushAll removes every cached entry, returning the count removed.
func (c *ResultCache) FlushAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = make(map[string]*cacheEntry)
	atomic.AddInt64(&c.evictions, int64(n))
	return n
}

// Stats reports current cache performance.
func (c *ResultCache) Stats() CacheStats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	c.mu.RLock()
	entries := int64(len(c.entries))
	c.mu.RUnlock()
	return CacheStats{
		Hits:       hits,
		Misses:     misses,
		Evictions:  atomic.LoadInt64(&c.evictions),
		Entries:    entries,
		HitRatePct: hitRate,
	}
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
