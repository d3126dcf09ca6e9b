package embcache

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Memo is an in-process memoizing decorator over a domain.Embedder.
// Entries live for the process lifetime and are never persisted, so
// repeated queries skip the API without leaking text into the store.
type Memo struct {
	inner      domain.Embedder
	cacheTotal *prometheus.CounterVec

	mu      sync.Mutex
	entries map[string][]float32
}

// New creates a memoizing decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(inner domain.Embedder, cacheTotal *prometheus.CounterVec) *Memo {
	return &Memo{
		inner:      inner,
		cacheTotal: cacheTotal,
		entries:    make(map[string][]float32),
	}
}

// Embed returns a memoized embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (m *Memo) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if vec, ok := m.get(text); ok {
		m.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	m.incCache("miss")

	result, err := m.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	m.put(text, result.Embedding)
	return result, nil
}

// Len returns the number of memoized entries.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) get(text string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vec, ok := m.entries[text]
	return vec, ok
}

func (m *Memo) put(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[text] = vec
}

func (m *Memo) incCache(result string) {
	if m.cacheTotal != nil {
		m.cacheTotal.WithLabelValues(result).Inc()
	}
}
