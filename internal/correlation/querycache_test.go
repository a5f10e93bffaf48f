package correlation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCache_HitAndMiss(t *testing.T) {
	c := NewQueryCache(4, time.Minute)

	_, ok := c.Get("absent")
	assert.False(t, ok)

	c.Set("k1", "v1")
	got, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", got)
}

func TestQueryCache_ExpiryIsMissAndDrops(t *testing.T) {
	c := NewQueryCache(4, 50*time.Millisecond)
	current := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	c.Set("k", 42)
	_, ok := c.Get("k")
	assert.True(t, ok)

	current = current.Add(51 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}

func TestQueryCache_InsertionOrderEviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	// Reading "a" does not protect it: eviction is by insertion order.
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.False(t, okA)
	assert.True(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Len())
}

func TestQueryCache_OverwriteRefreshesPosition(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10) // re-insert moves "a" to the back of the queue
	c.Set("c", 3)  // evicts "b", the oldest insertion

	got, okA := c.Get("a")
	_, okB := c.Get("b")
	require.True(t, okA)
	assert.Equal(t, 10, got)
	assert.False(t, okB)
}

func TestQueryCache_Clear(t *testing.T) {
	c := NewQueryCache(4, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()
	assert.Zero(t, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestQueryCache_ConcurrentAccess(t *testing.T) {
	c := NewQueryCache(32, time.Minute)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%40)
				c.Set(key, i)
				c.Get(key)
			}
		}(w)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 32)
}
