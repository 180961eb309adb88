package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func TestLRUCache_Creation(t *testing.T) {
	testCases := []struct {
		name      string
		capacity  int
		expectCap int
	}{
		{"default capacity", 0, DefaultCapacity},
		{"negative capacity", -5, DefaultCapacity},
		{"custom capacity", 500, 500},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewLRUCache[string, int](tc.capacity, 0)
			assert.Equal(t, tc.expectCap, c.Capacity())
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestLRUCache_BasicSetGet(t *testing.T) {
	c := NewLRUCache[string, string](100, time.Minute)

	t.Run("Set and Get returns value", func(t *testing.T) {
		c.Put("k", "v")
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("Get non-existent key returns false", func(t *testing.T) {
		_, ok := c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Update existing key", func(t *testing.T) {
		c.Put("u", "one")
		c.Put("u", "two")
		got, ok := c.Get("u")
		require.True(t, ok)
		assert.Equal(t, "two", got)
	})
}

func TestLRUCache_TTLExpiration(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int64, string](10, 10*time.Minute, WithClock(clock.Now))

	c.Put(1, "pending")
	c.PutFor(2, "short", time.Minute)

	clock.Advance(2 * time.Minute)
	_, ok := c.Get(2)
	assert.False(t, ok, "short entry should have expired")

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "pending", got)

	clock.Advance(9 * time.Minute)
	_, ok = c.Get(1)
	assert.False(t, ok, "default TTL entry should have expired")
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_Take(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[int64, string](10, time.Minute, WithClock(clock.Now))

	c.Put(7, "coffee")
	got, ok := c.Take(7)
	require.True(t, ok)
	assert.Equal(t, "coffee", got)

	_, ok = c.Take(7)
	assert.False(t, ok, "second take must miss")

	c.Put(8, "late")
	clock.Advance(2 * time.Minute)
	_, ok = c.Take(8)
	assert.False(t, ok, "expired entries are not taken")
}

func TestLRUCache_LRUEviction(t *testing.T) {
	c := NewLRUCache[string, int](3, time.Minute)

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	// Touch "a" so "b" becomes the oldest.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("d", 4)
	assert.Equal(t, 3, c.Len())

	_, ok = c.Get("b")
	assert.False(t, ok, "b should have been evicted")
	for _, k := range []string{"a", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "expected %s to remain", k)
	}
}

func TestLRUCache_Delete(t *testing.T) {
	c := NewLRUCache[string, int](10, time.Minute)
	c.Put("a", 1)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))
	assert.Equal(t, 0, c.Len())
}

func TestLRUCache_Prune(t *testing.T) {
	clock := newClock()
	c := NewLRUCache[string, int](10, time.Hour, WithClock(clock.Now))

	c.PutFor("short-1", 1, time.Second)
	c.PutFor("short-2", 2, time.Second)
	c.Put("long", 3)

	clock.Advance(time.Minute)
	assert.Equal(t, 2, c.Prune())
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_ThreadSafety(t *testing.T) {
	c := NewLRUCache[string, int](50, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k-%d", (g*200+i)%80)
				c.Put(key, i)
				c.Get(key)
				if i%10 == 0 {
					c.Take(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
