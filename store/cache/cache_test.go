package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCacheSetGet(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute, MaxItems: 10})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1)
	value, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, 1, value)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute, MaxItems: 10})
	defer c.Close()
	ctx := context.Background()

	c.SetWithTTL(ctx, "a", "v", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestCacheDelete(t *testing.T) {
	evicted := map[string]any{}
	c := New(Config{
		DefaultTTL:      time.Minute,
		CleanupInterval: time.Minute,
		MaxItems:        10,
		OnEviction:      func(key string, value any) { evicted[key] = value },
	})
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", 1)
	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, map[string]any{"a": 1}, evicted)
}

func TestCacheEvictsAtCapacity(t *testing.T) {
	c := New(Config{DefaultTTL: time.Minute, CleanupInterval: time.Minute, MaxItems: 2})
	defer c.Close()
	ctx := context.Background()

	c.SetWithTTL(ctx, "oldest", 1, time.Second)
	c.SetWithTTL(ctx, "newer", 2, time.Minute)
	c.SetWithTTL(ctx, "newest", 3, time.Minute)

	_, ok := c.Get(ctx, "oldest")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "newest")
	assert.True(t, ok)
}
