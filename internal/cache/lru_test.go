package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_EvictionAndTTL(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	now := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a") // a becomes most recently used
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok, "expired entries are not returned")
	assert.Equal(t, 1, c.CleanExpired())
	assert.Zero(t, c.Size())
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("dashboard:1", "x")
	c.Set("dashboard:2", "y")
	c.Set("categories", "z")

	assert.Equal(t, 2, c.DeletePrefix("dashboard:"))
	assert.Equal(t, 1, c.Size())
}

func TestLRUCache_GetOrLoad(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	ctx := context.Background()
	var calls atomic.Int32
	release := make(chan struct{})

	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(ctx, "k", load)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())

	_, err := c.GetOrLoad(ctx, "bad", func(context.Context) (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	_, ok := c.Get("bad")
	assert.False(t, ok, "errors are not cached")
}

func TestManager_CleanAll(t *testing.T) {
	a := NewLRUCache[int](10, time.Millisecond)
	b := NewLRUCache[int](10, time.Hour)
	a.Set("x", 1)
	b.Set("y", 2)

	m := NewManager(nil)
	m.Register(a)
	m.Register(b)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, m.CleanAll())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
