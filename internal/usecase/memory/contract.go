package memory

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// TurnStore persists conversation turns.
type TurnStore interface {
	Insert(ctx context.Context, t domain.Turn) error
	ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	MaxIndex(ctx context.Context, sessionID string) (int, error)
	DeleteBefore(ctx context.Context, sessionID string, minIndex int) error
	DeleteSession(ctx context.Context, sessionID string) (int, error)
}
