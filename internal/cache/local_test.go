package cache

import (
	"fmt"
	"testing"
	"time"
)

func newTestLocal(capacity int) (*LocalCache, *time.Time) {
	c := NewLocalCache(capacity)
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func TestLocalCache_SetGet(t *testing.T) {
	c, _ := newTestLocal(4)

	c.Set("qr:b1:abc", []byte("answer"), time.Minute)
	v, ok := c.Get("qr:b1:abc")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(v) != "answer" {
		t.Fatalf("expected %q, got %q", "answer", v)
	}

	if _, ok := c.Get("qr:b1:missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestLocalCache_TTLExpiry(t *testing.T) {
	c, now := newTestLocal(4)

	c.Set("hours:b1", []byte("Monday 09:00-22:00"), time.Minute)
	*now = now.Add(time.Minute - time.Second)
	if _, ok := c.Get("hours:b1"); !ok {
		t.Fatal("entry expired early")
	}

	*now = now.Add(time.Second)
	if _, ok := c.Get("hours:b1"); ok {
		t.Fatal("expected expiry at TTL")
	}
	if got := c.Len(); got != 0 {
		t.Fatalf("expired entry not evicted on read, len=%d", got)
	}
}

func TestLocalCache_CapacityNeverExceeded(t *testing.T) {
	c, _ := newTestLocal(3)

	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("qr:b1:%03d", i), []byte("v"), time.Minute)
		if got := c.Len(); got > 3 {
			t.Fatalf("after insert %d: len=%d exceeds capacity", i, got)
		}
	}
	if got := c.Len(); got != 3 {
		t.Fatalf("expected full cache, len=%d", got)
	}
}

func TestLocalCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestLocal(2)

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected hit on a")
	}

	c.Set("c", []byte("3"), time.Minute)
	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should survive eviction")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatal("c should be present")
	}
}

func TestLocalCache_SetUpdatesExisting(t *testing.T) {
	c, _ := newTestLocal(2)

	c.Set("a", []byte("old"), time.Minute)
	c.Set("a", []byte("new"), time.Minute)
	if got := c.Len(); got != 1 {
		t.Fatalf("update created a duplicate entry, len=%d", got)
	}
	v, _ := c.Get("a")
	if string(v) != "new" {
		t.Fatalf("expected updated value, got %q", v)
	}
}

func TestLocalCache_DeletePrefix(t *testing.T) {
	c, _ := newTestLocal(8)

	c.Set("qr:b1:aaa", []byte("1"), time.Minute)
	c.Set("qr:b1:bbb", []byte("2"), time.Minute)
	c.Set("qr:b2:ccc", []byte("3"), time.Minute)
	c.Set("hours:b1", []byte("4"), time.Minute)

	if removed := c.DeletePrefix("qr:b1:"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := c.Get("qr:b1:aaa"); ok {
		t.Fatal("prefixed entry survived invalidation")
	}
	if _, ok := c.Get("qr:b2:ccc"); !ok {
		t.Fatal("other business's entry must survive")
	}
	if _, ok := c.Get("hours:b1"); !ok {
		t.Fatal("other namespace must survive")
	}
}
