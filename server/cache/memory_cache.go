package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is an in-process TTL cache with least recently used
// eviction once maxSize entries are held.
type MemoryCache struct {
	items   map[string]*CacheItem
	mutex   sync.Mutex
	maxSize int
	logger  *zap.Logger
	cleanup *time.Ticker
	stopCh  chan struct{}
	once    sync.Once
	now     func() time.Time
}

type CacheItem struct {
	Value       any
	ExpiresAt   time.Time
	LastUsed    time.Time
	AccessCount int64
}

func NewMemoryCache(maxSize int, logger *zap.Logger) *MemoryCache {
	cache := &MemoryCache{
		items:   make(map[string]*CacheItem),
		maxSize: maxSize,
		logger:  logger,
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}

	cache.cleanup = time.NewTicker(1 * time.Minute)
	go cache.cleanupExpired()

	return cache
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

func (c *MemoryCache) SetIfAbsent(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if item, ok := c.live(key); ok {
		item.LastUsed = c.now()
		item.AccessCount++
		return false, nil
	}

	c.store(key, value, ttl)
	return true, nil
}

func (c *MemoryCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	item, ok := c.live(key)
	if !ok {
		return 0, ErrCacheMiss
	}

	return item.ExpiresAt.Sub(c.now()), nil
}

func (c *MemoryCache) GetStats(ctx context.Context) (*CacheStats, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	expiredCount := 0
	totalAccessCount := int64(0)

	for _, item := range c.items {
		if now.After(item.ExpiresAt) {
			expiredCount++
		}
		totalAccessCount += item.AccessCount
	}

	return &CacheStats{
		Connected: true,
		Items:     len(c.items),
		Expired:   expiredCount,
		MaxSize:   c.maxSize,
		Info:      fmt.Sprintf("access_count=%d", totalAccessCount),
	}, nil
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() {
		c.cleanup.Stop()
		close(c.stopCh)
	})
	return nil
}

// live returns the unexpired item for key, dropping it if it has expired.
// Callers hold the mutex.
func (c *MemoryCache) live(key string) (*CacheItem, bool) {
	item, exists := c.items[key]
	if !exists {
		return nil, false
	}

	if c.now().After(item.ExpiresAt) {
		delete(c.items, key)
		return nil, false
	}

	return item, true
}

// store writes key, evicting the least recently used entry when full.
// Callers hold the mutex.
func (c *MemoryCache) store(key string, value any, ttl time.Duration) {
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLRU()
	}

	now := c.now()
	c.items[key] = &CacheItem{
		Value:       value,
		ExpiresAt:   now.Add(ttl),
		LastUsed:    now,
		AccessCount: 1,
	}
}

func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.LastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.LastUsed
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.logger.Debug("Evicted cache entry", zap.String("key", oldestKey))
	}
}

func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.cleanup.C:
			c.mutex.Lock()
			now := c.now()
			for key, item := range c.items {
				if now.After(item.ExpiresAt) {
					delete(c.items, key)
				}
			}
			c.mutex.Unlock()
		case <-c.stopCh:
			return
		}
	}
}

// GenerateCacheKey joins components into a namespaced key.
func GenerateCacheKey(components ...string) string {
	return strings.Join(components, ":")
}
