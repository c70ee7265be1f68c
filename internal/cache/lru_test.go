package cache

import (
	"testing"
	"time"
)

func TestLRUCacheGetSet(t *testing.T) {
	c := NewLRUCache[string](4, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on an empty cache should miss")
	}

	c.Set("a", "alpha")
	got, ok := c.Get("a")
	if !ok || got != "alpha" {
		t.Errorf("Get(a) = %q, %v; want alpha, true", got, ok)
	}

	c.Set("a", "alpha2")
	if got, _ := c.Get("a"); got != "alpha2" {
		t.Errorf("Set should overwrite, got %q", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("a should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should be present")
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache[int](4, 10*time.Millisecond)

	c.Set("a", 1)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expired entry should miss")
	}
}

func TestLRUCacheDelete(t *testing.T) {
	c := NewLRUCache[int](4, time.Minute)

	c.Set("a", 1)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry should miss")
	}
	// Deleting a missing key is a no-op.
	c.Delete("missing")
}

func TestCleanExpired(t *testing.T) {
	c := NewLRUCache[int](8, 10*time.Millisecond)

	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	c.Set("c", 3)

	cleaned := c.CleanExpired()
	if cleaned != 2 {
		t.Errorf("CleanExpired = %d, want 2", cleaned)
	}
	if c.Size() != 1 {
		t.Errorf("Size after cleanup = %d, want 1", c.Size())
	}
}

func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	c := NewLRUCache[int](4, time.Millisecond)
	m.Register(c)

	m.StartCleanup(5 * time.Millisecond)
	c.Set("a", 1)
	time.Sleep(25 * time.Millisecond)
	m.Stop()

	if c.Size() != 0 {
		t.Errorf("Size after managed cleanup = %d, want 0", c.Size())
	}
}
