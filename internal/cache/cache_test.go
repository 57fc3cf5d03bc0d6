// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("value1"), 5*time.Minute)

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok)
	assert.Equal(t, []byte("value1"), val)

	_, ok = c.Get(ctx, "nonexistent")
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, 1, s.CurrentSize)
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	c := NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	buf := []byte("token")
	c.Set(ctx, "k", buf, time.Minute)
	buf[0] = 'X'

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "token", string(got))
	got[0] = 'Y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "token", string(again))
}

func TestMemoryCache_Expiration(t *testing.T) {
	mc := NewMemoryCache(0).(*memoryCache)
	t.Cleanup(func() { _ = mc.Close() })
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mc.now = func() time.Time { return now }
	ctx := context.Background()

	mc.Set(ctx, "short", []byte("v"), time.Minute)
	_, ok := mc.Get(ctx, "short")
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = mc.Get(ctx, "short")
	assert.False(t, ok, "entry must expire exactly at its deadline")

	assert.Equal(t, 1, mc.deleteExpired())
	assert.Equal(t, int64(1), mc.Stats().Evictions)
	assert.Equal(t, 0, mc.Stats().CurrentSize)
}

func TestMemoryCache_NonPositiveTTL(t *testing.T) {
	c := NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.Stats().Sets)
}

func TestMemoryCache_Delete(t *testing.T) {
	c := NewMemoryCache(0)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCache_JanitorStopsOnClose(t *testing.T) {
	c := NewMemoryCache(5 * time.Millisecond)
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats().CurrentSize == 0
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestMemoryCache_Concurrent(t *testing.T) {
	c := NewMemoryCache(time.Millisecond)
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := string(rune('a' + i))
			for range 100 {
				c.Set(ctx, key, []byte(key), time.Minute)
				_, _ = c.Get(ctx, key)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, c.Stats().CurrentSize)
}

func TestNoOpCache(t *testing.T) {
	c := NewNoOpCache()
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
	assert.NoError(t, c.Close())
}
