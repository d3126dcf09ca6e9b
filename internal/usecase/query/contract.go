package query

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// ChunkSearcher runs KNN search over stored chunks.
type ChunkSearcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.Chunk, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
