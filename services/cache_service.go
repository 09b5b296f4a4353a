package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/models"
	"github.com/sirupsen/logrus"
)

// CacheEntry is a cached search result with its expiry
type CacheEntry struct {
	Result    *models.SearchResult
	ExpiresAt time.Time
}

// CacheService keeps recent search results in memory so repeated API
// queries for the same route do not hit the provider again.
type CacheService struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	defaultTTL time.Duration
	maxSize    int
	now        func() time.Time
}

// NewCacheService creates a cache holding at most maxSize results for ttl each
func NewCacheService(ttl time.Duration, maxSize int) *CacheService {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &CacheService{
		cache:      make(map[string]*CacheEntry),
		defaultTTL: ttl,
		maxSize:    maxSize,
		now:        time.Now,
	}
}

// SearchCacheKey identifies a search by provider and route
func SearchCacheKey(provider string, input models.SearchInput) string {
	returnDate := ""
	if input.IsRoundTrip() {
		returnDate = *input.ReturnDate
	}
	return strings.Join([]string{strings.ToLower(provider), input.Origin, input.Destination, input.DepartureDate, returnDate}, "|")
}

// Get returns a live cached result
func (cs *CacheService) Get(key string) (*models.SearchResult, bool) {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	entry, exists := cs.cache[key]
	if !exists || cs.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Result, true
}

// Set stores a result with the default TTL, evicting the entry closest to expiry when full
func (cs *CacheService) Set(key string, result *models.SearchResult) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if _, exists := cs.cache[key]; !exists && len(cs.cache) >= cs.maxSize {
		cs.evictOldest()
	}

	cs.cache[key] = &CacheEntry{
		Result:    result,
		ExpiresAt: cs.now().Add(cs.defaultTTL),
	}
}

func (cs *CacheService) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range cs.cache {
		if oldestKey == "" || entry.ExpiresAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.ExpiresAt
		}
	}

	if oldestKey != "" {
		delete(cs.cache, oldestKey)
	}
}

// Clear removes all values from cache
func (cs *CacheService) Clear() {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	cs.cache = make(map[string]*CacheEntry)
}

// Size returns the number of items in cache
func (cs *CacheService) Size() int {
	cs.mutex.RLock()
	defer cs.mutex.RUnlock()

	return len(cs.cache)
}

// CleanupExpired drops expired entries and reports how many were removed
func (cs *CacheService) CleanupExpired() int {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	now := cs.now()
	removed := 0
	for key, entry := range cs.cache {
		if now.After(entry.ExpiresAt) {
			delete(cs.cache, key)
			removed++
		}
	}
	return removed
}

// Searcher is anything that runs a provider search
type Searcher interface {
	Search(ctx context.Context, provider string, input models.SearchInput) (*models.SearchResult, error)
}

// CachedSearchService answers repeated searches from the cache. Failures are never cached.
type CachedSearchService struct {
	searcher Searcher
	cache    *CacheService
}

func NewCachedSearchService(searcher Searcher, cache *CacheService) *CachedSearchService {
	return &CachedSearchService{searcher: searcher, cache: cache}
}

func (c *CachedSearchService) Search(ctx context.Context, provider string, input models.SearchInput) (*models.SearchResult, error) {
	key := SearchCacheKey(provider, input)
	if result, ok := c.cache.Get(key); ok {
		logrus.WithFields(logrus.Fields{
			"component": "CachedSearchService",
			"key":       key,
			"run_id":    result.Metadata.RunID,
		}).Debug("Serving search from cache")
		return result, nil
	}

	result, err := c.searcher.Search(ctx, provider, input)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, result)
	return result, nil
}
