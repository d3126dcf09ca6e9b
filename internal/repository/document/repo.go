package document

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

const keyPrefix = domain.KeyPrefix + "doc:"

// store is the consumer interface for document hashes (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo persists document records as Redis hashes.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Create registers a new document and returns it with a generated ID.
func (r *Repo) Create(ctx context.Context, filename string) (domain.Document, error) {
	doc := domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		CreatedAt: time.Now().UTC(),
	}

	key := docKey(doc.ID)
	fields := map[string]string{
		"id":         doc.ID,
		"filename":   doc.Filename,
		"created_at": doc.CreatedAt.Format(time.RFC3339Nano),
	}
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return domain.Document{}, fmt.Errorf("hset %s: %w", key, err)
	}

	return doc, nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, id string) (domain.Document, error) {
	key := docKey(id)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(fields) == 0 {
		return domain.Document{}, domain.ErrDocumentNotFound
	}
	return parseDocument(id, fields), nil
}

// List returns all documents, newest first.
func (r *Repo) List(ctx context.Context) ([]domain.Document, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan documents: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch documents: %w", err)
	}

	docs := make([]domain.Document, 0, len(maps))
	for i, fields := range maps {
		if len(fields) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		docs = append(docs, parseDocument(extractDocID(keys[i]), fields))
	}

	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return docs, nil
}

// Delete removes a document record.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := docKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}

func docKey(id string) string {
	return keyPrefix + id
}

func extractDocID(key string) string {
	if len(key) > len(keyPrefix) {
		return key[len(keyPrefix):]
	}
	return key
}

func parseDocument(id string, fields map[string]string) domain.Document {
	doc := domain.Document{
		ID:       id,
		Filename: fields["filename"],
	}
	if stored := fields["id"]; stored != "" {
		doc.ID = stored
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["created_at"]); err == nil {
		doc.CreatedAt = ts
	}
	return doc
}
