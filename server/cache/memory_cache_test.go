package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(t *testing.T, maxSize int) (*MemoryCache, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	c := NewMemoryCache(maxSize, zap.NewNop())
	c.now = clock.Now
	t.Cleanup(func() { c.Close() })

	return c, clock
}

func TestMemoryCache_ExpiryAndDelete(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()

	stored, err := c.SetIfAbsent(ctx, "k", true, 5*time.Second)
	require.NoError(t, err)
	require.True(t, stored)

	ttl, err := c.GetTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, ttl)

	clock.Advance(4 * time.Second)
	ttl, err = c.GetTTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Second, ttl)

	clock.Advance(2 * time.Second)
	_, err = c.GetTTL(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	stored, _ = c.SetIfAbsent(ctx, "k", true, 5*time.Second)
	require.True(t, stored)
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.GetTTL(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_SetIfAbsent(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()

	stored, err := c.SetIfAbsent(ctx, "cooldown", true, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, stored)

	stored, _ = c.SetIfAbsent(ctx, "cooldown", true, 5*time.Second)
	assert.False(t, stored)

	clock.Advance(6 * time.Second)
	stored, _ = c.SetIfAbsent(ctx, "cooldown", true, 5*time.Second)
	assert.True(t, stored)
}

func TestMemoryCache_SetIfAbsentConcurrent(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if stored, _ := c.SetIfAbsent(ctx, "k", 1, time.Minute); stored {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, clock := newTestCache(t, 2)
	ctx := context.Background()

	c.SetIfAbsent(ctx, "a", 1, time.Minute)
	clock.Advance(time.Second)
	c.SetIfAbsent(ctx, "b", 2, time.Minute)
	clock.Advance(time.Second)

	// A refused write still counts as a use of the live key.
	stored, _ := c.SetIfAbsent(ctx, "a", 1, time.Minute)
	require.False(t, stored)
	clock.Advance(time.Second)

	stored, _ = c.SetIfAbsent(ctx, "c", 3, time.Minute)
	require.True(t, stored)

	_, err := c.GetTTL(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss, "b was least recently used")
	_, err = c.GetTTL(ctx, "a")
	assert.NoError(t, err)

	stats, err := c.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Items)
	assert.Equal(t, 2, stats.MaxSize)
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(1, zap.NewNop())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestGenerateCacheKey(t *testing.T) {
	assert.Equal(t, "cooldown:cam-1:firearm", GenerateCacheKey("cooldown", "cam-1", "firearm"))
}
