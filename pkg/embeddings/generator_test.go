package embeddings

import (
	"context"
	"testing"
	"time"

	"github.com/kestrel-labs/promptforge/pkg/cache"
)

type countingGenerator struct {
	calls int
	dims  int
}

func (g *countingGenerator) Generate(ctx context.Context, text string) ([]float32, error) {
	g.calls++
	out := make([]float32, g.dims)
	for i := range out {
		out[i] = float32(len(text))
	}
	return out, nil
}

func (g *countingGenerator) GenerateBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, _ := g.Generate(ctx, t)
		out[i] = v
	}
	return out, nil
}

func (g *countingGenerator) Dimensions() int { return g.dims }
func (g *countingGenerator) ModelName() string { return "counting-test-model" }

func newTestCache(t *testing.T) cache.Cache {
	t.Helper()
	cfg := cache.DefaultConfig()
	cfg.RedisEnabled = false
	mlc, err := cache.NewMultiLayerCache(cfg)
	if err != nil {
		t.Fatalf("NewMultiLayerCache: %v", err)
	}
	return mlc
}

func TestCachedGenerator_HitsCacheOnSecondCall(t *testing.T) {
	inner := &countingGenerator{dims: 4}
	cg := NewCachedGenerator(inner, newTestCache(t), time.Minute)
	ctx := context.Background()

	if _, err := cg.Generate(ctx, "hello world"); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := cg.Generate(ctx, "hello world"); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 underlying call, got %d", inner.calls)
	}
}

func TestCachedGenerator_DifferentTextsMiss(t *testing.T) {
	inner := &countingGenerator{dims: 4}
	cg := NewCachedGenerator(inner, newTestCache(t), time.Minute)
	ctx := context.Background()

	_, _ = cg.Generate(ctx, "a")
	_, _ = cg.Generate(ctx, "b")

	if inner.calls != 2 {
		t.Errorf("expected 2 underlying calls, got %d", inner.calls)
	}
}

func TestCachedGenerator_GenerateBatch_PartialCacheHit(t *testing.T) {
	inner := &countingGenerator{dims: 4}
	cg := NewCachedGenerator(inner, newTestCache(t), time.Minute)
	ctx := context.Background()

	_, err := cg.Generate(ctx, "already-cached")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	inner.calls = 0

	results, err := cg.GenerateBatch(ctx, []string{"already-cached", "fresh-one"})
	if err != nil {
		t.Fatalf("GenerateBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if inner.calls != 1 {
		t.Errorf("expected exactly 1 underlying call for the uncached text, got %d", inner.calls)
	}
}
