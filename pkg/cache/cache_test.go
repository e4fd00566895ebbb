package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/spacebiology/osdrgraph/pkg/results"
)

func formatted(t results.ResultType) *results.Formatted {
	return &results.Formatted{Type: t}
}

func TestResultCache_Basic(t *testing.T) {
	c := NewResultCache(10, time.Minute)

	key := c.Key("MATCH (n) RETURN n", nil)
	if _, found := c.Get(key); found {
		t.Error("Expected cache miss, got hit")
	}

	c.Put(key, formatted(results.TypeTable))

	cached, found := c.Get(key)
	if !found {
		t.Fatal("Expected cache hit, got miss")
	}
	if cached.Type != results.TypeTable {
		t.Error("Cached result doesn't match original")
	}
}

func TestResultCache_KeyIncludesParamValues(t *testing.T) {
	c := NewResultCache(10, time.Minute)

	k1 := c.Key("MATCH (s:Study {id: $id}) RETURN s", map[string]any{"id": "OSD-1"})
	k2 := c.Key("MATCH (s:Study {id: $id}) RETURN s", map[string]any{"id": "OSD-2"})
	if k1 == k2 {
		t.Error("different parameter values produced the same key")
	}

	k3 := c.Key("MATCH (s:Study {id: $id}) RETURN s", map[string]any{"id": "OSD-1"})
	if k1 != k3 {
		t.Error("identical calls produced different keys")
	}
}

func TestResultCache_KeyOrderIndependent(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	// Map iteration order must not leak into the key.
	for i := 0; i < 20; i++ {
		k1 := c.Key("q", map[string]any{"a": 1, "b": 2, "c": 3})
		k2 := c.Key("q", map[string]any{"c": 3, "a": 1, "b": 2})
		if k1 != k2 {
			t.Fatal("key depends on parameter map order")
		}
	}
}

func TestResultCache_TTL(t *testing.T) {
	c := NewResultCache(10, time.Millisecond)

	key := c.Key("MATCH (n) RETURN n", nil)
	c.Put(key, formatted(results.TypeScalar))

	if _, found := c.Get(key); !found {
		t.Error("Expected cache hit immediately after put")
	}

	time.Sleep(5 * time.Millisecond)

	if _, found := c.Get(key); found {
		t.Error("Expected miss after TTL expiry")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not evicted, Len() = %d", c.Len())
	}
}

func TestResultCache_LRUEviction(t *testing.T) {
	c := NewResultCache(3, time.Minute)

	keys := make([]uint64, 4)
	for i := range keys {
		keys[i] = c.Key(fmt.Sprintf("query-%d", i), nil)
	}

	c.Put(keys[0], formatted(results.TypeTable))
	c.Put(keys[1], formatted(results.TypeTable))
	c.Put(keys[2], formatted(results.TypeTable))

	// Touch key 0 so key 1 becomes the oldest.
	c.Get(keys[0])

	c.Put(keys[3], formatted(results.TypeTable))

	if _, found := c.Get(keys[1]); found {
		t.Error("least recently used entry survived eviction")
	}
	if _, found := c.Get(keys[0]); !found {
		t.Error("recently used entry was evicted")
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestResultCache_Stats(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	key := c.Key("q", nil)

	c.Get(key) // miss
	c.Put(key, formatted(results.TypeTable))
	c.Get(key) // hit

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("stats = %+v, want 1 hit / 1 miss", stats)
	}
	if stats.HitRate != 50 {
		t.Errorf("HitRate = %v, want 50", stats.HitRate)
	}
	if stats.Size != 1 || stats.MaxSize != 10 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestResultCache_Disabled(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	key := c.Key("q", nil)
	c.Put(key, formatted(results.TypeTable))

	c.SetEnabled(false)
	if _, found := c.Get(key); found {
		t.Error("disabled cache returned a hit")
	}
	c.Put(key, formatted(results.TypeTable))
	if c.Len() != 0 {
		t.Errorf("disabled cache accepted a put, Len() = %d", c.Len())
	}
}

func TestResultCache_ConcurrentGetPut(t *testing.T) {
	c := NewResultCache(8, time.Minute)
	key := c.Key("MATCH (n) RETURN n", nil)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				c.Put(key, formatted(results.TypeTable))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				if f, ok := c.Get(key); ok && f == nil {
					t.Error("hit returned nil result")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestResultCache_Clear(t *testing.T) {
	c := NewResultCache(10, time.Minute)
	c.Put(c.Key("a", nil), formatted(results.TypeTable))
	c.Put(c.Key("b", nil), formatted(results.TypeTable))

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() = %d after Clear", c.Len())
	}
}
