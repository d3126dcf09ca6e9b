package chat

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// DocumentSearcher retrieves chunks relevant to a query.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, query string, topK int, threshold float64) ([]domain.Chunk, error)
}

// Memory reads and appends conversational history.
type Memory interface {
	History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	StoreTurn(ctx context.Context, sessionID, userMessage, aiResponse string, meta domain.TurnMetadata) error
}

// Generator produces chat completions.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}
