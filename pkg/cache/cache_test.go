package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 🕰️ fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestMemoryExpiry(t *testing.T) {
	ttl := 100 * time.Millisecond

	tests := []struct {
		name    string
		elapsed time.Duration
		wantHit bool
	}{
		{name: "immediately", elapsed: 0, wantHit: true},
		{name: "just_before_ttl", elapsed: ttl - time.Millisecond, wantHit: true},
		{name: "at_ttl", elapsed: ttl, wantHit: false},
		{name: "after_ttl", elapsed: ttl + time.Second, wantHit: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			clock := newFakeClock()
			c := NewMemory(WithTTL(ttl), WithClock(clock.Now))

			require.NoError(t, c.Put(ctx, "k", "v"), "put should succeed")
			clock.Advance(tt.elapsed)

			got, ok := c.Get(ctx, "k")
			assert.Equal(t, tt.wantHit, ok, "hit should match")
			if tt.wantHit {
				assert.Equal(t, "v", got, "value should match")
			} else {
				assert.Empty(t, got, "miss should return empty value")
			}
		})
	}
}

func TestMemoryExpiredEntryStaysUntilRead(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory(WithTTL(time.Second), WithClock(clock.Now))

	require.NoError(t, c.Put(ctx, "k", "v"), "put should succeed")
	clock.Advance(2 * time.Second)

	stats, err := c.Stats(ctx)
	require.NoError(t, err, "stats should succeed")
	assert.Equal(t, 1, stats.EntryCount, "expired entry should not be swept proactively")

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok, "expired entry should miss")

	stats, err = c.Stats(ctx)
	require.NoError(t, err, "stats should succeed")
	assert.Equal(t, 0, stats.EntryCount, "expired entry should be dropped on read")
}

func TestMemoryPutOverwritesAndResetsTimestamp(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory(WithTTL(time.Second), WithClock(clock.Now))

	require.NoError(t, c.Put(ctx, "k", "old"), "put should succeed")
	clock.Advance(900 * time.Millisecond)
	require.NoError(t, c.Put(ctx, "k", "new"), "overwrite should succeed")
	clock.Advance(900 * time.Millisecond)

	got, ok := c.Get(ctx, "k")
	require.True(t, ok, "overwritten entry should still be fresh")
	assert.Equal(t, "new", got, "overwrite should replace value")
}

func TestMemoryClearAndStats(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	for i := 0; i < 3; i++ {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), "v"), "put should succeed")
	}

	stats, err := c.Stats(ctx)
	require.NoError(t, err, "stats should succeed")
	assert.Equal(t, 3, stats.EntryCount, "should count entries")

	require.NoError(t, c.Clear(ctx), "clear should succeed")

	stats, err = c.Stats(ctx)
	require.NoError(t, err, "stats should succeed")
	assert.Equal(t, 0, stats.EntryCount, "clear should empty the cache")
}

func TestMemorySetTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory(WithClock(clock.Now))
	assert.Equal(t, DefaultTTL, c.TTL(), "default ttl should be five minutes")

	require.NoError(t, c.Put(ctx, "k", "v"), "put should succeed")
	clock.Advance(2 * time.Second)

	c.SetTTL(time.Second)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok, "shorter ttl should apply to existing entries")
}

func TestMemoryMaxEntries(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemory(WithMaxEntries(2), WithClock(clock.Now))

	require.NoError(t, c.Put(ctx, "a", "1"), "put should succeed")
	clock.Advance(time.Millisecond)
	require.NoError(t, c.Put(ctx, "b", "2"), "put should succeed")
	clock.Advance(time.Millisecond)

	// overwriting an existing key never evicts
	require.NoError(t, c.Put(ctx, "a", "1b"), "overwrite should succeed")
	clock.Advance(time.Millisecond)
	require.NoError(t, c.Put(ctx, "c", "3"), "put should succeed")

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "oldest entry should be evicted")

	got, ok := c.Get(ctx, "a")
	require.True(t, ok, "refreshed entry should remain")
	assert.Equal(t, "1b", got, "refreshed value should match")

	_, ok = c.Get(ctx, "c")
	assert.True(t, ok, "new entry should be stored")
}

func TestMemoryConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			_ = c.Put(ctx, key, fmt.Sprintf("v%d", i))
			_, _ = c.Get(ctx, key)
		}(i)
	}
	wg.Wait()

	stats, err := c.Stats(ctx)
	require.NoError(t, err, "stats should succeed")
	assert.Equal(t, 5, stats.EntryCount, "same keys should collapse to one entry each")
}
