package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

const probeSize = 1024

// Config tunes the ingestion pipeline.
type Config struct {
	EmbeddingModel string
	BatchSize      int
	MaxFileSizeMB  int
}

// Service runs the document ingestion pipeline: validate, convert, chunk,
// embed in batches, and store.
type Service struct {
	converter Converter
	chunker   Chunker
	docs      DocumentStore
	chunks    ChunkStore
	embed     BatchEmbedder
	cfg       Config
	logger    *zap.Logger
}

// New creates an ingest service.
func New(
	converter Converter,
	chunker Chunker,
	docs DocumentStore,
	chunks ChunkStore,
	embed BatchEmbedder,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 50
	}
	return &Service{
		converter: converter,
		chunker:   chunker,
		docs:      docs,
		chunks:    chunks,
		embed:     embed,
		cfg:       cfg,
		logger:    logger,
	}
}

// Ingest processes one file end to end. It never returns an error: every
// outcome is reported through the IngestResult status.
func (s *Service) Ingest(ctx context.Context, path string) domain.IngestResult {
	filename := filepath.Base(path)

	if ok, reason := s.ValidateFile(path); !ok {
		return failedResult(filename, reason)
	}

	conv, err := s.converter.Convert(path)
	if err != nil {
		s.logger.Warn("conversion failed", zap.String("filename", filename), zap.Error(err))
		return failedResult(filename, fmt.Sprintf("conversion failed: %v", err))
	}
	if !conv.IsValid() {
		return failedResult(filename, "conversion produced no usable text")
	}

	doc, err := s.docs.Create(ctx, conv.Filename)
	if err != nil {
		s.logger.Error("failed to register document", zap.String("filename", filename), zap.Error(err))
		return failedResult(filename, fmt.Sprintf("failed to register document: %v", err))
	}

	candidates := s.chunker.Chunk(conv)
	if len(candidates) == 0 {
		s.rollback(ctx, doc.ID)
		return failedResult(filename, "document produced no chunks")
	}

	// Batch failures are partial by contract: once candidates exist and
	// storage was attempted, the run is a success even with zero stored
	// chunks, and the document record stays.
	created := s.embedAndStore(ctx, doc, candidates)

	s.logger.Info("document ingested",
		zap.String("doc_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.Int("chunks", created))

	return domain.IngestResult{
		DocumentID:    doc.ID,
		Filename:      doc.Filename,
		ChunksCreated: created,
		Status:        domain.IngestSuccess,
	}
}

// ValidateFile checks a file before conversion. Returns false with a
// human-readable reason on rejection.
func (s *Service) ValidateFile(path string) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "file not found"
	}

	maxBytes := int64(s.cfg.MaxFileSizeMB) * 1024 * 1024
	if info.Size() > maxBytes {
		return false, fmt.Sprintf("file exceeds %dMB size limit", s.cfg.MaxFileSizeMB)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !s.converter.Supports(ext) {
		return false, fmt.Sprintf("unsupported file format %q (supported: %s)",
			ext, strings.Join(s.converter.SupportedFormats(), ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return false, "file is not readable"
	}
	defer f.Close()

	if _, err := io.ReadAll(io.LimitReader(f, probeSize)); err != nil {
		return false, "file is not readable"
	}

	return true, ""
}

// embedAndStore processes candidates in sequential batches. A failed batch is
// logged and skipped; the rest of the document still goes in.
func (s *Service) embedAndStore(ctx context.Context, doc domain.Document, candidates []domain.ChunkCandidate) int {
	created := 0

	for batchStart, batchNum := 0, 0; batchStart < len(candidates); batchStart, batchNum = batchStart+s.cfg.BatchSize, batchNum+1 {
		batchEnd := batchStart + s.cfg.BatchSize
		if batchEnd > len(candidates) {
			batchEnd = len(candidates)
		}
		batch := candidates[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, cand := range batch {
			if text := s.chunker.Contextualize(cand); text != "" {
				texts[i] = text
			} else {
				texts[i] = cand.Text
			}
		}

		embResult, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			s.logger.Warn("embedding batch failed, skipping",
				zap.String("doc_id", doc.ID),
				zap.Int("batch", batchNum),
				zap.Error(err))
			continue
		}

		chunks := make([]domain.Chunk, len(batch))
		for i, cand := range batch {
			chunks[i] = domain.Chunk{
				DocumentID: doc.ID,
				Index:      batchStart + i,
				Content:    cand.Text,
				Embedding:  embResult.Embeddings[i],
				Metadata: domain.ChunkMetadata{
					Filename:       doc.Filename,
					Heading:        cand.Heading,
					Page:           cand.Page,
					BatchID:        batchNum,
					EmbeddingModel: s.cfg.EmbeddingModel,
					ChunkLength:    len(cand.Text),
				},
			}
		}

		if err := s.chunks.InsertMany(ctx, chunks); err != nil {
			s.logger.Warn("storing batch failed, skipping",
				zap.String("doc_id", doc.ID),
				zap.Int("batch", batchNum),
				zap.Error(err))
			continue
		}

		created += len(chunks)
	}

	return created
}

func (s *Service) rollback(ctx context.Context, docID string) {
	if err := s.docs.Delete(ctx, docID); err != nil {
		s.logger.Warn("failed to roll back document record",
			zap.String("doc_id", docID),
			zap.Error(err))
	}
}

func failedResult(filename, reason string) domain.IngestResult {
	return domain.IngestResult{
		DocumentID:   uuid.Nil.String(),
		Filename:     filename,
		Status:       domain.IngestFailed,
		ErrorMessage: reason,
	}
}
