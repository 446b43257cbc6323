package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestMemoryGetSet(t *testing.T) {
	t.Run("should return stored value before TTL", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", "v1", time.Minute)

		v, ok := c.Get("k1")
		require.True(t, ok)
		assert.Equal(t, "v1", v)
	})

	t.Run("should miss on unknown key", func(t *testing.T) {
		c := NewMemory(10)

		v, ok := c.Get("missing")
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("should treat expired entry as absent", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", "v1", 10*time.Millisecond)

		time.Sleep(20 * time.Millisecond)

		_, ok := c.Get("k1")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("should not store with non-positive TTL", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", "v1", 0)

		_, ok := c.Get("k1")
		assert.False(t, ok)
	})

	t.Run("should overwrite existing key", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", "v1", time.Minute)
		c.Set("k1", "v2", time.Minute)

		v, ok := c.Get("k1")
		require.True(t, ok)
		assert.Equal(t, "v2", v)
		assert.Equal(t, 1, c.Len())
	})
}

func TestMemoryEviction(t *testing.T) {
	t.Run("should bound entries to max size", func(t *testing.T) {
		c := NewMemory(3)
		for i := 0; i < 5; i++ {
			c.Set(fmt.Sprintf("k%d", i), i, time.Minute)
		}

		assert.LessOrEqual(t, c.Len(), 3)
	})

	t.Run("should evict oldest entry first", func(t *testing.T) {
		c := NewMemory(2)
		c.Set("old", 1, time.Minute)
		time.Sleep(2 * time.Millisecond)
		c.Set("newer", 2, time.Minute)
		time.Sleep(2 * time.Millisecond)
		c.Set("newest", 3, time.Minute)

		_, ok := c.Get("old")
		assert.False(t, ok)
		_, ok = c.Get("newest")
		assert.True(t, ok)
	})
}

func TestMemoryDeletePurge(t *testing.T) {
	t.Run("should delete a key", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", "v1", time.Minute)
		c.Delete("k1")

		_, ok := c.Get("k1")
		assert.False(t, ok)
	})

	t.Run("should be idempotent on missing key", func(t *testing.T) {
		c := NewMemory(10)
		c.Delete("missing")
	})

	t.Run("should purge all entries", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("k1", 1, time.Minute)
		c.Set("k2", 2, time.Minute)
		c.Purge()

		assert.Equal(t, 0, c.Len())
	})
}

func TestMemorySweep(t *testing.T) {
	t.Run("should remove only expired entries", func(t *testing.T) {
		c := NewMemory(10)
		c.Set("stale", 1, 5*time.Millisecond)
		c.Set("fresh", 2, time.Minute)

		time.Sleep(10 * time.Millisecond)
		removed := c.Sweep()

		assert.Equal(t, 1, removed)
		_, ok := c.Get("fresh")
		assert.True(t, ok)
	})
}

func TestMemoryConcurrency(t *testing.T) {
	t.Run("should survive concurrent readers and writers", func(t *testing.T) {
		c := NewMemory(100)
		var wg sync.WaitGroup

		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func(n int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.Set(fmt.Sprintf("k%d", j%20), n, time.Minute)
				}
			}(i)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					c.Get(fmt.Sprintf("k%d", j%20))
				}
			}()
		}
		wg.Wait()
	})
}

func TestFingerprint(t *testing.T) {
	t.Run("should be deterministic for identical requests", func(t *testing.T) {
		a, err := Fingerprint("list invoices", "chat", map[string]any{"dept": "finance"})
		require.NoError(t, err)
		b, err := Fingerprint("list invoices", "chat", map[string]any{"dept": "finance"})
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("should not depend on context map ordering", func(t *testing.T) {
		a, err := Fingerprint("q", "chat", map[string]any{"x": 1, "y": 2, "z": 3})
		require.NoError(t, err)
		b, err := Fingerprint("q", "chat", map[string]any{"z": 3, "y": 2, "x": 1})
		require.NoError(t, err)

		assert.Equal(t, a, b)
	})

	t.Run("should differ for different queries", func(t *testing.T) {
		a, err := Fingerprint("query one", "chat", nil)
		require.NoError(t, err)
		b, err := Fingerprint("query two", "chat", nil)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("should differ for different request types", func(t *testing.T) {
		a, err := Fingerprint("q", "chat", nil)
		require.NoError(t, err)
		b, err := Fingerprint("q", "sql", nil)
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("should differ for different contexts", func(t *testing.T) {
		a, err := Fingerprint("q", "chat", map[string]any{"dept": "a"})
		require.NoError(t, err)
		b, err := Fingerprint("q", "chat", map[string]any{"dept": "b"})
		require.NoError(t, err)

		assert.NotEqual(t, a, b)
	})

	t.Run("should carry the query prefix", func(t *testing.T) {
		key, err := Fingerprint("q", "chat", nil)
		require.NoError(t, err)

		assert.Contains(t, key, "query:")
	})
}

func TestJanitor(t *testing.T) {
	t.Run("should reject an invalid schedule", func(t *testing.T) {
		c := NewMemory(10)
		_, err := NewJanitor(c, "not a schedule", testLogger())
		assert.Error(t, err)
	})

	t.Run("should accept a valid schedule", func(t *testing.T) {
		c := NewMemory(10)
		j, err := NewJanitor(c, "@every 1h", testLogger())
		require.NoError(t, err)

		j.Start()
		j.Stop()
	})
}
