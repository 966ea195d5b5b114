package recurrence

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"
)

// CacheEntry represents a cached rule
type CacheEntry struct {
	Rule       *Rule
	ExpiresAt  time.Time
	AccessedAt time.Time
}

// RuleCache keeps constructed rules keyed by input, start and policy
type RuleCache struct {
	entries         map[string]*CacheEntry
	mutex           sync.RWMutex
	ttl             time.Duration
	maxEntries      int
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	closeOnce       sync.Once
}

// CacheConfig holds configuration for the rule cache
type CacheConfig struct {
	TTL             time.Duration // How long entries stay valid
	MaxEntries      int           // Maximum number of entries before cleanup
	CleanupInterval time.Duration // How often to run cleanup; zero disables the background loop
}

// DefaultCacheConfig provides sensible defaults for rule caching
var DefaultCacheConfig = CacheConfig{
	TTL:             15 * time.Minute,
	MaxEntries:      1000,
	CleanupInterval: 5 * time.Minute,
}

// NewRuleCache creates a new rule cache with the given configuration
func NewRuleCache(config CacheConfig) *RuleCache {
	cache := &RuleCache{
		entries:         make(map[string]*CacheEntry),
		ttl:             config.TTL,
		maxEntries:      config.MaxEntries,
		cleanupInterval: config.CleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	if cache.cleanupInterval > 0 {
		go cache.cleanupLoop()
	}

	return cache
}

// cacheKey hashes every value that influences construction
func cacheKey(input string, start time.Time, cfg Config) string {
	hasher := sha256.New()

	hasher.Write([]byte(input))
	hasher.Write([]byte{0})
	hasher.Write([]byte(start.Format(time.RFC3339Nano)))
	hasher.Write([]byte(start.Location().String()))
	hasher.Write([]byte{0})
	hasher.Write([]byte(strconv.Itoa(cfg.NumPreview)))
	hasher.Write([]byte(strconv.FormatBool(cfg.DailyOrGreaterOnly)))
	if cfg.ComparisonZone != nil {
		hasher.Write([]byte(cfg.ComparisonZone.String()))
	}

	return fmt.Sprintf("%x", hasher.Sum(nil))
}

// Get retrieves a cached rule if it exists and hasn't expired
func (c *RuleCache) Get(input string, start time.Time, cfg Config) (*Rule, bool) {
	key := cacheKey(input, start, cfg)

	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists {
		return nil, false
	}

	now := time.Now()
	if now.After(entry.ExpiresAt) {
		c.evict(key, entry)
		return nil, false
	}

	c.mutex.Lock()
	entry.AccessedAt = now
	c.mutex.Unlock()

	return entry.Rule, true
}

// evict removes entry unless a concurrent Set has replaced it since it was read.
func (c *RuleCache) evict(key string, entry *CacheEntry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.entries[key] == entry {
		delete(c.entries, key)
	}
}

// Set stores a rule in the cache
func (c *RuleCache) Set(input string, start time.Time, cfg Config, rule *Rule) {
	key := cacheKey(input, start, cfg)
	now := time.Now()

	entry := &CacheEntry{
		Rule:       rule,
		ExpiresAt:  now.Add(c.ttl),
		AccessedAt: now,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry

	if c.maxEntries > 0 && len(c.entries) > c.maxEntries {
		c.cleanup()
	}
}

// GetOrCreate returns the cached rule for the arguments or builds and caches a
// new one. Construction errors are not cached.
func (c *RuleCache) GetOrCreate(input string, start time.Time, cfg Config, opts ...Option) (*Rule, error) {
	if rule, ok := c.Get(input, start, cfg); ok {
		return rule, nil
	}
	rule, err := New(input, start, append([]Option{WithConfig(cfg)}, opts...)...)
	if err != nil {
		return nil, err
	}
	c.Set(input, start, cfg, rule)
	return rule, nil
}

// cleanup removes expired entries and oldest entries if over limit
func (c *RuleCache) cleanup() {
	now := time.Now()

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}

	if c.maxEntries <= 0 || len(c.entries) <= c.maxEntries {
		return
	}

	type keyAccess struct {
		key        string
		accessedAt time.Time
	}

	keyAccessList := make([]keyAccess, 0, len(c.entries))
	for key, entry := range c.entries {
		keyAccessList = append(keyAccessList, keyAccess{
			key:        key,
			accessedAt: entry.AccessedAt,
		})
	}

	// Oldest first
	sort.Slice(keyAccessList, func(i, j int) bool {
		return keyAccessList[i].accessedAt.Before(keyAccessList[j].accessedAt)
	})

	entriesToRemove := len(c.entries) - c.maxEntries
	for i := 0; i < entriesToRemove; i++ {
		delete(c.entries, keyAccessList[i].key)
	}
}

// cleanupLoop runs periodic cleanup
func (c *RuleCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mutex.Lock()
			c.cleanup()
			c.mutex.Unlock()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine and clears the cache
func (c *RuleCache) Close() {
	c.closeOnce.Do(func() { close(c.stopCleanup) })
	c.mutex.Lock()
	c.entries = make(map[string]*CacheEntry)
	c.mutex.Unlock()
}

// Stats returns cache statistics
func (c *RuleCache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entryCount := len(c.entries)
	expiredCount := 0
	now := time.Now()

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			expiredCount++
		}
	}

	return CacheStats{
		TotalEntries:   entryCount,
		ExpiredEntries: expiredCount,
		ActiveEntries:  entryCount - expiredCount,
	}
}

// CacheStats provides information about cache contents
type CacheStats struct {
	TotalEntries   int
	ExpiredEntries int
	ActiveEntries  int
}
