package document

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Service exposes document management on top of the repositories.
type Service struct {
	docs   DocumentStore
	chunks ChunkStore
	logger *zap.Logger
}

// New creates a document service.
func New(docs DocumentStore, chunks ChunkStore, logger *zap.Logger) *Service {
	return &Service{docs: docs, chunks: chunks, logger: logger}
}

// List returns all documents, newest first.
func (s *Service) List(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Get returns one document by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Document, error) {
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		return domain.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Chunks returns a document's chunks ordered by index. The document must exist.
func (s *Service) Chunks(ctx context.Context, id string) ([]domain.Chunk, error) {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	chunks, err := s.chunks.ListByDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	return chunks, nil
}

// Delete removes a document and all of its chunks. Chunks go first so a
// failure never leaves orphans behind a missing document record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.docs.Get(ctx, id); err != nil {
		return fmt.Errorf("get document: %w", err)
	}

	removed, err := s.chunks.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	if err := s.docs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	s.logger.Info("document deleted",
		zap.String("doc_id", id),
		zap.Int("chunks_removed", removed))

	return nil
}
