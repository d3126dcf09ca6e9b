package document

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// DocumentStore reads and removes document records.
type DocumentStore interface {
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkStore reads and removes the chunks belonging to a document.
type ChunkStore interface {
	ListByDocument(ctx context.Context, docID string) ([]domain.Chunk, error)
	DeleteByDocument(ctx context.Context, docID string) (int, error)
}
