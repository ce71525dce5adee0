package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache(10, time.Minute)
	ctx := context.Background()

	if err := mc.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := mc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("got %q, want %q", got, "v")
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	mc := NewMemoryCache(10, time.Minute)
	if _, err := mc.Get(context.Background(), "missing"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache(10, time.Millisecond)
	ctx := context.Background()
	_ = mc.Set(ctx, "k", []byte("v"), time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := mc.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	mc := NewMemoryCache(2, time.Minute)
	ctx := context.Background()
	_ = mc.Set(ctx, "a", []byte("1"), 0)
	_ = mc.Set(ctx, "b", []byte("2"), 0)
	_ = mc.Set(ctx, "c", []byte("3"), 0) // evicts "a"

	if _, err := mc.Get(ctx, "a"); err != ErrCacheMiss {
		t.Errorf("expected \"a\" to be evicted")
	}
	if _, err := mc.Get(ctx, "c"); err != nil {
		t.Errorf("expected \"c\" to be present: %v", err)
	}
}

func TestMultiLayerCache_MemoryOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisEnabled = false

	mlc, err := NewMultiLayerCache(cfg)
	if err != nil {
		t.Fatalf("NewMultiLayerCache: %v", err)
	}
	defer mlc.Close()

	ctx := context.Background()
	if err := mlc.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := mlc.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "value" {
		t.Errorf("got %q, want %q", got, "value")
	}
}

func TestHashKey_Deterministic(t *testing.T) {
	a := HashKey("prompt text", "text-embedding-3-small")
	b := HashKey("prompt text", "text-embedding-3-small")
	if a != b {
		t.Errorf("HashKey not deterministic: %q != %q", a, b)
	}

	c := HashKey("different text", "text-embedding-3-small")
	if a == c {
		t.Error("HashKey collided on different inputs")
	}
}

func TestCacheStats_HitRate(t *testing.T) {
	s := CacheStats{Hits: 3, Misses: 1}
	if got := s.HitRate(); got != 0.75 {
		t.Errorf("HitRate() = %v, want 0.75", got)
	}

	empty := CacheStats{}
	if got := empty.HitRate(); got != 0 {
		t.Errorf("HitRate() on empty stats = %v, want 0", got)
	}
}
