package query

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Service retrieves document chunks relevant to a natural language query.
type Service struct {
	chunks    ChunkSearcher
	embed     Embedder
	topK      int
	threshold float64
	logger    *zap.Logger
}

// New creates a query service. topK and threshold are the retrieval defaults
// used when a request does not override them.
func New(chunks ChunkSearcher, embed Embedder, topK int, threshold float64, logger *zap.Logger) *Service {
	return &Service{
		chunks:    chunks,
		embed:     embed,
		topK:      topK,
		threshold: threshold,
		logger:    logger,
	}
}

// EmbedQuery vectorizes a user query.
func (s *Service) EmbedQuery(ctx context.Context, query string) (domain.EmbeddingResult, error) {
	result, err := s.embed.Embed(ctx, query)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("vectorize query: %w", err)
	}
	return result, nil
}

// SearchDocuments embeds the query and returns chunks above the similarity
// threshold, best first. topK <= 0 and threshold <= 0 fall back to defaults.
func (s *Service) SearchDocuments(ctx context.Context, query string, topK int, threshold float64) ([]domain.Chunk, error) {
	if topK <= 0 {
		topK = s.topK
	}
	if threshold <= 0 {
		threshold = s.threshold
	}

	embResult, err := s.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.chunks.Search(ctx, embResult.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}

	// Post-filter: similarity threshold
	filtered := results[:0]
	for _, c := range results {
		if c.Similarity >= threshold {
			filtered = append(filtered, c)
		}
	}
	results = filtered

	s.logger.Debug("document search complete",
		zap.Int("top_k", topK),
		zap.Float64("threshold", threshold),
		zap.Int("results", len(results)))

	return results, nil
}
