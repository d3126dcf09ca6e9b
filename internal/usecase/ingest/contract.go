package ingest

import (
	"context"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

// Converter turns source files into plain-text documents.
type Converter interface {
	Supports(ext string) bool
	SupportedFormats() []string
	Convert(path string) (*domain.ConvertedDocument, error)
}

// Chunker splits converted documents into embeddable candidates.
type Chunker interface {
	Chunk(doc *domain.ConvertedDocument) []domain.ChunkCandidate
	Contextualize(cand domain.ChunkCandidate) string
}

// DocumentStore registers and removes document records.
type DocumentStore interface {
	Create(ctx context.Context, filename string) (domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ChunkStore persists embedded chunks.
type ChunkStore interface {
	InsertMany(ctx context.Context, chunks []domain.Chunk) error
}

// BatchEmbedder vectorizes batches of texts.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
