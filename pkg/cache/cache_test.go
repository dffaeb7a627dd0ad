package cache

import (
	"testing"
	"time"
)

func TestSetAndGet(t *testing.T) {
	c := New()
	c.Set("barrier:1", "main gate", 1*time.Second)
	val, ok := c.Get("barrier:1")
	if !ok || val != "main gate" {
		t.Fatalf("expected main gate, got %v, exists=%v", val, ok)
	}
}

func TestExpiration(t *testing.T) {
	c := New()
	c.Set("barrier:1", "main gate", 100*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("barrier:1")
	if ok {
		t.Fatalf("expected expired key to return false")
	}
}

func TestDelete(t *testing.T) {
	c := New()
	c.Set("barrier:1", "main gate", 1*time.Second)
	c.Delete("barrier:1")
	_, ok := c.Get("barrier:1")
	if ok {
		t.Fatalf("expected deleted key to return false")
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.Set("barrier:1", "main gate", 1*time.Second)
	c.Set("barrier:2", "south gate", 1*time.Second)
	c.Clear()
	if _, ok := c.Get("barrier:1"); ok {
		t.Fatalf("expected cleared cache to be empty")
	}
	if _, ok := c.Get("barrier:2"); ok {
		t.Fatalf("expected cleared cache to be empty")
	}
}
