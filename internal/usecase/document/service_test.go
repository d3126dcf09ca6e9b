package document

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

type mockDocStore struct {
	getFn    func(ctx context.Context, id string) (domain.Document, error)
	listFn   func(ctx context.Context) ([]domain.Document, error)
	deleteFn func(ctx context.Context, id string) error
	deleted  []string
}

func (m *mockDocStore) Get(ctx context.Context, id string) (domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return domain.Document{ID: id, Filename: "notes.txt"}, nil
}

func (m *mockDocStore) List(ctx context.Context) ([]domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockDocStore) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

type mockChunkStore struct {
	listFn   func(ctx context.Context, docID string) ([]domain.Chunk, error)
	deleteFn func(ctx context.Context, docID string) (int, error)
	deleted  []string
}

func (m *mockChunkStore) ListByDocument(ctx context.Context, docID string) ([]domain.Chunk, error) {
	if m.listFn != nil {
		return m.listFn(ctx, docID)
	}
	return nil, nil
}

func (m *mockChunkStore) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	m.deleted = append(m.deleted, docID)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, docID)
	}
	return 3, nil
}

func newTestService(docs *mockDocStore, chunks *mockChunkStore) *Service {
	return New(docs, chunks, zap.NewNop())
}

func TestList(t *testing.T) {
	docs := &mockDocStore{
		listFn: func(_ context.Context) ([]domain.Document, error) {
			return []domain.Document{{ID: "b"}, {ID: "a"}}, nil
		},
	}
	svc := newTestService(docs, &mockChunkStore{})

	got, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" {
		t.Errorf("unexpected documents: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	docs := &mockDocStore{
		getFn: func(_ context.Context, _ string) (domain.Document, error) {
			return domain.Document{}, domain.ErrDocumentNotFound
		},
	}
	svc := newTestService(docs, &mockChunkStore{})

	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestChunks(t *testing.T) {
	chunks := &mockChunkStore{
		listFn: func(_ context.Context, docID string) ([]domain.Chunk, error) {
			return []domain.Chunk{{DocumentID: docID, Index: 0}, {DocumentID: docID, Index: 1}}, nil
		},
	}
	svc := newTestService(&mockDocStore{}, chunks)

	got, err := svc.Chunks(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[1].Index != 1 {
		t.Errorf("unexpected chunks: %+v", got)
	}
}

func TestChunks_DocumentMissing(t *testing.T) {
	docs := &mockDocStore{
		getFn: func(_ context.Context, _ string) (domain.Document, error) {
			return domain.Document{}, domain.ErrDocumentNotFound
		},
	}
	chunks := &mockChunkStore{
		listFn: func(_ context.Context, _ string) ([]domain.Chunk, error) {
			t.Fatal("chunks must not be listed for a missing document")
			return nil, nil
		},
	}
	svc := newTestService(docs, chunks)

	_, err := svc.Chunks(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDelete_CascadesChunksFirst(t *testing.T) {
	docs := &mockDocStore{}
	chunks := &mockChunkStore{}
	svc := newTestService(docs, chunks)

	if err := svc.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks.deleted) != 1 || chunks.deleted[0] != "doc-1" {
		t.Errorf("expected chunk cascade, got %v", chunks.deleted)
	}
	if len(docs.deleted) != 1 || docs.deleted[0] != "doc-1" {
		t.Errorf("expected document delete, got %v", docs.deleted)
	}
}

func TestDelete_ChunkFailureKeepsDocument(t *testing.T) {
	docs := &mockDocStore{}
	chunks := &mockChunkStore{
		deleteFn: func(_ context.Context, _ string) (int, error) {
			return 0, errors.New("redis down")
		},
	}
	svc := newTestService(docs, chunks)

	if err := svc.Delete(context.Background(), "doc-1"); err == nil {
		t.Fatal("expected error")
	}
	if len(docs.deleted) != 0 {
		t.Errorf("document must survive a failed chunk cascade, deleted=%v", docs.deleted)
	}
}

func TestDelete_NotFound(t *testing.T) {
	docs := &mockDocStore{
		getFn: func(_ context.Context, _ string) (domain.Document, error) {
			return domain.Document{}, domain.ErrDocumentNotFound
		},
	}
	chunks := &mockChunkStore{}
	svc := newTestService(docs, chunks)

	err := svc.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if len(chunks.deleted) != 0 {
		t.Errorf("no cascade expected for a missing document, got %v", chunks.deleted)
	}
}
