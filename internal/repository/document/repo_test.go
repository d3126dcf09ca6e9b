package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func TestCreate_StoresHashFields(t *testing.T) {
	repo, ms := newTestRepo(t)

	var gotKey string
	var gotFields map[string]string
	ms.hsetFn = func(_ context.Context, key string, fields map[string]string) error {
		gotKey = key
		gotFields = fields
		return nil
	}

	doc, err := repo.Create(context.Background(), "report.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.ID == "" {
		t.Fatal("expected generated ID")
	}
	if !strings.HasPrefix(gotKey, keyPrefix) {
		t.Errorf("unexpected key: %s", gotKey)
	}
	if gotFields["filename"] != "report.md" {
		t.Errorf("unexpected filename field: %q", gotFields["filename"])
	}
	if gotFields["id"] != doc.ID {
		t.Errorf("id field %q does not match doc ID %q", gotFields["id"], doc.ID)
	}
	if _, err := time.Parse(time.RFC3339Nano, gotFields["created_at"]); err != nil {
		t.Errorf("created_at not RFC3339Nano: %q", gotFields["created_at"])
	}
}

func TestCreate_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hsetFn = func(_ context.Context, _ string, _ map[string]string) error {
		return errors.New("connection refused")
	}

	_, err := repo.Create(context.Background(), "report.md")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGet_Success(t *testing.T) {
	repo, ms := newTestRepo(t)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ms.hgetAllFn = func(_ context.Context, key string) (map[string]string, error) {
		if key != keyPrefix+"doc-1" {
			t.Errorf("unexpected key: %s", key)
		}
		return map[string]string{
			"id":         "doc-1",
			"filename":   "notes.txt",
			"created_at": created.Format(time.RFC3339Nano),
		}, nil
	}

	doc, err := repo.Get(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.ID != "doc-1" || doc.Filename != "notes.txt" {
		t.Errorf("unexpected doc: %+v", doc)
	}
	if !doc.CreatedAt.Equal(created) {
		t.Errorf("unexpected created_at: %v", doc.CreatedAt)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.hgetAllFn = func(_ context.Context, _ string) (map[string]string, error) {
		return map[string]string{}, nil
	}

	_, err := repo.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestList_SortsNewestFirst(t *testing.T) {
	repo, ms := newTestRepo(t)

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != keyPrefix+"*" {
			t.Errorf("unexpected pattern: %s", pattern)
		}
		return []string{keyPrefix + "a", keyPrefix + "b"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, keys []string) ([]map[string]string, error) {
		return []map[string]string{
			{"id": "a", "filename": "old.txt", "created_at": older.Format(time.RFC3339Nano)},
			{"id": "b", "filename": "new.txt", "created_at": newer.Format(time.RFC3339Nano)},
		}, nil
	}

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "b" || docs[1].ID != "a" {
		t.Errorf("expected newest first, got %s, %s", docs[0].ID, docs[1].ID)
	}
}

func TestList_Empty(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, nil
	}

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if docs != nil {
		t.Errorf("expected nil, got %v", docs)
	}
}

func TestList_SkipsVanishedKeys(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return []string{keyPrefix + "a", keyPrefix + "b"}, nil
	}
	ms.hgetAllMultiFn = func(_ context.Context, _ []string) ([]map[string]string, error) {
		return []map[string]string{
			{},
			{"id": "b", "filename": "kept.txt", "created_at": time.Now().UTC().Format(time.RFC3339Nano)},
		}, nil
	}

	docs, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "b" {
		t.Errorf("expected only surviving doc, got %v", docs)
	}
}

func TestDelete_Success(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }

	var deleted string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = key
		return nil
	}

	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != keyPrefix+"doc-1" {
		t.Errorf("unexpected deleted key: %s", deleted)
	}
}

func TestDelete_NotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.existsFn = func(_ context.Context, _ string) (bool, error) { return false, nil }

	err := repo.Delete(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}
}
