// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := newRedisCache(client, "", zerolog.Nop())
	t.Cleanup(func() { _ = c.Close() })
	return mr, c
}

func TestRedisCache_SetGet(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "token:aad", []byte("secret"), 5*time.Minute)

	val, ok := c.Get(ctx, "token:aad")
	require.True(t, ok)
	assert.Equal(t, "secret", string(val))
	assert.True(t, mr.Exists("mediaservices:token:aad"))

	s := c.Stats()
	assert.Equal(t, int64(1), s.Sets)
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, 1, s.CurrentSize)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)

	val, ok := c.Get(context.Background(), "nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), time.Minute)
	assert.Equal(t, time.Minute, mr.TTL("mediaservices:short"))

	mr.FastForward(2 * time.Minute)
	_, ok := c.Get(ctx, "short")
	assert.False(t, ok)
}

func TestRedisCache_Delete(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")
	assert.False(t, mr.Exists("mediaservices:k"))
}

func TestRedisCache_PrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "tenant-a:", zerolog.Nop())
	b := newRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "tenant-b:", zerolog.Nop())
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	ctx := context.Background()

	a.Set(ctx, "token", []byte("a"), time.Minute)
	_, ok := b.Get(ctx, "token")
	assert.False(t, ok)
	assert.Equal(t, 1, a.Stats().CurrentSize)
	assert.Equal(t, 0, b.Stats().CurrentSize)
}

func TestRedisCache_ErrorsCountAsMiss(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"), time.Minute)

	mr.SetError("ERR injected")
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	c.Set(ctx, "k2", []byte("v"), time.Minute)
	assert.Equal(t, int64(1), c.Stats().Sets)
	mr.SetError("")
}

func TestRedisCache_HealthCheck(t *testing.T) {
	mr, c := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, c.HealthCheck(ctx))
	mr.Close()
	assert.Error(t, c.HealthCheck(ctx))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, RedisConfig{Addr: mr.Addr(), Prefix: "x:"}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	c.Set(ctx, "k", []byte("v"), time.Minute)
	assert.True(t, mr.Exists("x:k"))

	mr.Close()
	_, err = NewRedisCache(ctx, RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRedisCache_ConcurrentAccess(t *testing.T) {
	_, c := setupMiniRedis(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			c.Set(ctx, key, []byte(key), time.Minute)
			got, ok := c.Get(ctx, key)
			assert.True(t, ok)
			assert.Equal(t, key, string(got))
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, c.Stats().CurrentSize)
}
