package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openrisk-labs/kestrel/internal/domain"
)

func TestLRUSetGet(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "key1", []byte("value1"), time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := c.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "value1" {
		t.Errorf("expected value1, got %s", got)
	}
}

func TestLRUMissReturnsNil(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()

	got, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil on miss, got %s", got)
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "short", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	got, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Error("expected expired entry to be gone")
	}
}

func TestLRUDelete(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "key1", []byte("v"), time.Minute)
	if err := c.Delete(ctx, "key1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got, _ := c.Get(ctx, "key1"); got != nil {
		t.Error("expected deleted entry to be gone")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache(3)
	defer c.Close()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("key%d", i), []byte("v"), time.Minute)
	}

	size, capacity := c.Stats()
	if capacity != 3 {
		t.Errorf("expected capacity 3, got %d", capacity)
	}
	if size > 3 {
		t.Errorf("expected at most 3 entries, got %d", size)
	}

	// Oldest entries were evicted
	if got, _ := c.Get(ctx, "key0"); got != nil {
		t.Error("expected key0 to be evicted")
	}
	if got, _ := c.Get(ctx, "key4"); got == nil {
		t.Error("expected key4 to survive")
	}
}

func TestLRUIncrementCounter(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		count, err := c.IncrementCounter(ctx, "rate:client", time.Minute)
		if err != nil {
			t.Fatalf("increment failed: %v", err)
		}
		if count != want {
			t.Errorf("expected count %d, got %d", want, count)
		}
	}
}

func TestLRUCounterWindowReset(t *testing.T) {
	c := NewLRUCache(10)
	defer c.Close()
	ctx := context.Background()

	c.IncrementCounter(ctx, "rate:client", 10*time.Millisecond)
	c.IncrementCounter(ctx, "rate:client", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	count, err := c.IncrementCounter(ctx, "rate:client", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected counter reset to 1 after window, got %d", count)
	}
}

func TestFactoryMemory(t *testing.T) {
	c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 100})
	if err != nil {
		t.Fatalf("factory failed: %v", err)
	}
	defer c.Close()

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestFactoryUnknownType(t *testing.T) {
	if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
		t.Error("expected error for unknown cache type")
	}
}
