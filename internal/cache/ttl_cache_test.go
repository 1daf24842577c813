package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	if value, ok := c.Get("a"); !ok || value != 1 {
		t.Fatalf("expected (1, true), got (%d, %v)", value, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache[string, string]()

	c.Set("a", "x", 10*time.Millisecond)
	time.Sleep(25 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected entry to expire")
	}

	// A non-positive ttl never stores.
	c.Set("b", "y", 0)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected zero ttl not to store")
	}
}

func TestTTLCacheOverwrite(t *testing.T) {
	c := NewTTLCache[string, int]()

	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)
	if value, _ := c.Get("a"); value != 2 {
		t.Fatalf("expected overwrite to win, got %d", value)
	}
}
