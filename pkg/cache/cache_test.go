// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newMemoryWithClock() (*Memory, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory()
	m.now = clock.Now
	return m, clock
}

func TestMemory_GetSetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, _ := newMemoryWithClock()

	_, ok, err := m.Get(ctx, "applications")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "applications", []byte(`[]`), time.Minute))
	val, ok, err := m.Get(ctx, "applications")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[]`), val)

	require.NoError(t, m.Delete(ctx, "applications"))
	_, ok, err = m.Get(ctx, "applications")
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting a missing key is fine
	assert.NoError(t, m.Delete(ctx, "missing"))
}

func TestMemory_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m, clock := newMemoryWithClock()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 30*time.Second))
	require.NoError(t, m.Set(ctx, "forever", []byte("v"), 0))

	clock.Advance(29 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok, "entry must expire at its TTL")

	clock.Advance(24 * time.Hour)
	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemory_ValuesAreCopied(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	val := []byte("abc")
	require.NoError(t, m.Set(ctx, "k", val, time.Minute))
	val[0] = 'x'

	got, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'y'

	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemory_Close(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, m.Close())

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedisWithClient(client, "test:")
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedis_GetSetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, mr := newTestRedis(t)

	_, ok, err := r.Get(ctx, "applications")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "applications", []byte(`[{"uuid":"a"}]`), time.Minute))
	assert.True(t, mr.Exists("test:applications"))

	val, ok, err := r.Get(ctx, "applications")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `[{"uuid":"a"}]`, string(val))

	require.NoError(t, r.Delete(ctx, "applications"))
	assert.False(t, mr.Exists("test:applications"))
}

func TestRedis_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	r, mr := newTestRedis(t)

	require.NoError(t, r.Set(ctx, "k", []byte("v"), 30*time.Second))
	mr.FastForward(31 * time.Second)

	_, ok, err := r.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedis_DefaultPrefix(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	r := NewRedisWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	t.Cleanup(func() { _ = r.Close() })

	require.NoError(t, r.Set(context.Background(), "k", []byte("v"), 0))
	assert.True(t, mr.Exists(DefaultKeyPrefix+"k"))
}

func TestNew(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("memory by default", func(t *testing.T) {
		t.Parallel()
		c, err := New(ctx, Config{})
		require.NoError(t, err)
		assert.IsType(t, &Memory{}, c)
	})

	t.Run("redis url", func(t *testing.T) {
		t.Parallel()
		mr := miniredis.RunT(t)
		c, err := New(ctx, Config{RedisURL: "redis://" + mr.Addr() + "/0"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })
		assert.IsType(t, &Redis{}, c)
	})

	t.Run("invalid redis url", func(t *testing.T) {
		t.Parallel()
		_, err := New(ctx, Config{RedisURL: "://nope"})
		assert.Error(t, err)
	})
}
