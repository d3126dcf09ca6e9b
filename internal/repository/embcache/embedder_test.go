package embcache

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// mockEmbedder implements domain.Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 5}, nil
}

func TestEmbed_MissThenHit(t *testing.T) {
	inner := &mockEmbedder{}
	memo := New(inner, nil)

	first, err := memo.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 5 {
		t.Errorf("miss should report real usage, got %d", first.TotalTokens)
	}

	second, err := memo.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit should report zero tokens, got %d", second.TotalTokens)
	}
	if len(second.Embedding) != 2 || second.Embedding[0] != 0.1 {
		t.Errorf("unexpected cached vector: %v", second.Embedding)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestEmbed_DifferentTextsAreSeparateEntries(t *testing.T) {
	inner := &mockEmbedder{}
	memo := New(inner, nil)

	ctx := context.Background()
	memo.Embed(ctx, "first")
	memo.Embed(ctx, "second")
	memo.Embed(ctx, "first")

	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
	if memo.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", memo.Len())
	}
}

func TestEmbed_ErrorNotMemoized(t *testing.T) {
	inner := &mockEmbedder{}
	inner.embedFn = func(_ context.Context, _ string) (domain.EmbeddingResult, error) {
		if inner.calls == 1 {
			return domain.EmbeddingResult{}, errors.New("transient")
		}
		return domain.EmbeddingResult{Embedding: []float32{0.3}, TotalTokens: 3}, nil
	}
	memo := New(inner, nil)

	ctx := context.Background()
	if _, err := memo.Embed(ctx, "flaky"); err == nil {
		t.Fatal("expected error")
	}
	if memo.Len() != 0 {
		t.Errorf("failed embed must not be memoized, entries=%d", memo.Len())
	}

	result, err := memo.Embed(ctx, "flaky")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalTokens != 3 {
		t.Errorf("retry after error should be a miss, got tokens=%d", result.TotalTokens)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}
