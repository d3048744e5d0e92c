package exporter

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	cycleCacheKey   = "fetch_cycle"
	defaultCacheTTL = 1 * time.Minute
)

// CycleResult is the outcome of one fetch cycle.
type CycleResult struct {
	Items     []interface{}
	Err       error
	Duration  time.Duration
	FetchedAt time.Time
}

// ResultCache provides TTL-based caching of the last fetch cycle.
// It wraps patrickmn/go-cache so that frequent scrapes reuse one cycle
// instead of hitting the target system every time.
//
// Failed cycles are cached too, so a failing target is not hammered by
// every scrape.
//
// Thread-safety: All methods are safe for concurrent use.
type ResultCache struct {
	cache              *cache.Cache
	ttl                time.Duration
	lastCollectionMu   sync.RWMutex
	lastCollectionTime time.Time
}

// NewResultCache creates a new cache with the specified TTL.
// Cleanup interval is set to 2x TTL.
//
// If ttl <= 0, defaults to 1 minute.
func NewResultCache(ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &ResultCache{
		cache: cache.New(ttl, ttl*2),
		ttl:   ttl,
	}
}

// Get returns the cached cycle if it is still fresh.
func (rc *ResultCache) Get() (CycleResult, bool) {
	if cached, found := rc.cache.Get(cycleCacheKey); found {
		return cached.(CycleResult), true
	}
	return CycleResult{}, false
}

// Set stores a cycle with the default TTL.
func (rc *ResultCache) Set(result CycleResult) {
	rc.cache.Set(cycleCacheKey, result, cache.DefaultExpiration)
	rc.lastCollectionMu.Lock()
	rc.lastCollectionTime = time.Now()
	rc.lastCollectionMu.Unlock()
}

// GetLastCollectionTime returns when a cycle was last stored.
func (rc *ResultCache) GetLastCollectionTime() time.Time {
	rc.lastCollectionMu.RLock()
	defer rc.lastCollectionMu.RUnlock()
	return rc.lastCollectionTime
}

// TTL returns the configured cache TTL.
func (rc *ResultCache) TTL() time.Duration {
	return rc.ttl
}

// Flush clears all cached data.
// Use on config reload when the target changes.
func (rc *ResultCache) Flush() {
	rc.cache.Flush()
}
