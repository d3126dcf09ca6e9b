package memory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// DefaultLimit is the number of turns kept per session.
const DefaultLimit = 5

// Service maintains bounded conversational memory per chat session.
type Service struct {
	turns  TurnStore
	limit  int
	logger *zap.Logger
}

// New creates a memory service keeping at most limit turns per session.
func New(turns TurnStore, limit int, logger *zap.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{turns: turns, limit: limit, logger: logger}
}

// History returns a session's recent turns in chronological order. A limit
// of zero or less falls back to the configured retention limit.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	if limit <= 0 {
		limit = s.limit
	}
	recent, err := s.turns.ListRecent(ctx, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}

	// ListRecent returns newest first; conversations read oldest first.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	return recent, nil
}

// StoreTurn appends a turn to the session and evicts turns beyond the limit.
func (s *Service) StoreTurn(ctx context.Context, sessionID, userMessage, aiResponse string, meta domain.TurnMetadata) error {
	maxIdx, err := s.turns.MaxIndex(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("resolve turn index: %w", err)
	}
	next := maxIdx + 1

	if meta.TurnTimestamp.IsZero() {
		meta.TurnTimestamp = time.Now().UTC()
	}

	turn := domain.Turn{
		SessionID:   sessionID,
		Index:       next,
		UserMessage: userMessage,
		AIResponse:  aiResponse,
		CreatedAt:   meta.TurnTimestamp,
		Metadata:    meta,
	}
	if err := s.turns.Insert(ctx, turn); err != nil {
		return fmt.Errorf("store turn: %w", err)
	}

	// Evict everything older than the retention window.
	if minIndex := next + 1 - s.limit; minIndex > 0 {
		if err := s.turns.DeleteBefore(ctx, sessionID, minIndex); err != nil {
			s.logger.Warn("failed to evict old turns",
				zap.String("session_id", sessionID),
				zap.Error(err))
		}
	}

	return nil
}

// ClearSession removes all stored turns of a session. Clearing an unknown
// session is not an error.
func (s *Service) ClearSession(ctx context.Context, sessionID string) (int, error) {
	n, err := s.turns.DeleteSession(ctx, sessionID)
	if err != nil {
		return 0, fmt.Errorf("clear session: %w", err)
	}
	return n, nil
}
