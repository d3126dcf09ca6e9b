package chunk

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ragchat/internal/db"
	"github.com/kailas-cloud/ragchat/internal/domain"
)

const (
	keyPrefix = domain.KeyPrefix + "chunk:"

	// IndexName is the FT index over chunk hashes.
	IndexName = "ragchat_chunks_idx"
)

// store is the consumer interface for chunk hashes and KNN search (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// IndexParams tunes the HNSW vector index.
type IndexParams struct {
	Dimension   int
	M           int
	EFConstruct int
}

// Repo persists chunks as Redis hashes indexed for vector search.
type Repo struct {
	store  store
	params IndexParams
}

// New creates a chunk repository.
func New(s store, params IndexParams) *Repo {
	return &Repo{store: s, params: params}
}

// EnsureIndex creates the chunk vector index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     IndexName,
		Prefixes: []string{keyPrefix},
		Fields: []db.IndexField{
			{Name: "document_id", Type: db.IndexFieldTag},
			{Name: "chunk_index", Type: db.IndexFieldNumeric},
			{
				Name:              "vector",
				Type:              db.IndexFieldVector,
				VectorAlgo:        db.VectorHNSW,
				VectorDim:         r.params.Dimension,
				VectorDistance:    db.DistanceCosine,
				VectorM:           r.params.M,
				VectorEFConstruct: r.params.EFConstruct,
			},
		},
	}
	if err := def.Validate(); err != nil {
		return fmt.Errorf("index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil // concurrent startup
		}
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// InsertMany stores a batch of chunks in one round-trip.
func (r *Repo) InsertMany(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata for chunk %d: %w", c.Index, err)
		}
		items[i] = db.HashSetItem{
			Key: chunkKey(c.DocumentID, c.Index),
			Fields: map[string]string{
				"document_id": c.DocumentID,
				"chunk_index": strconv.Itoa(c.Index),
				"content":     c.Content,
				"vector":      encodeVector(c.Embedding),
				"metadata":    string(meta),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks: %w", err)
	}
	return nil
}

// Search returns the k nearest chunks to the query vector, best first.
func (r *Repo) Search(ctx context.Context, vector []float32, k int) ([]domain.Chunk, error) {
	result, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    IndexName,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{"document_id", "chunk_index", "content", "metadata"},
	})
	if err != nil {
		return nil, fmt.Errorf("knn search: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(result.Entries))
	for _, entry := range result.Entries {
		c := parseChunk(entry.Key, entry.Fields)
		c.Similarity = entry.Score
		c.Metadata.SimilarityScore = entry.Score
		chunks = append(chunks, c)
	}
	return chunks, nil
}

// ListByDocument returns a document's chunks ordered by index. Vectors are not loaded.
func (r *Repo) ListByDocument(ctx context.Context, docID string) ([]domain.Chunk, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+docID+":*")
	if err != nil {
		return nil, fmt.Errorf("scan chunks: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	chunks := make([]domain.Chunk, 0, len(maps))
	for i, fields := range maps {
		if len(fields) == 0 {
			continue
		}
		chunks = append(chunks, parseChunk(keys[i], fields))
	}

	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Index < chunks[j].Index
	})

	return chunks, nil
}

// DeleteByDocument removes all chunks of a document and returns how many were deleted.
func (r *Repo) DeleteByDocument(ctx context.Context, docID string) (int, error) {
	keys, err := r.store.Scan(ctx, keyPrefix+docID+":*")
	if err != nil {
		return 0, fmt.Errorf("scan chunks: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, fmt.Errorf("delete chunks: %w", err)
	}
	return len(keys), nil
}

func chunkKey(docID string, index int) string {
	return fmt.Sprintf("%s%s:%d", keyPrefix, docID, index)
}

func parseChunk(key string, fields map[string]string) domain.Chunk {
	c := domain.Chunk{
		DocumentID: fields["document_id"],
		Content:    fields["content"],
	}
	if idx, err := strconv.Atoi(fields["chunk_index"]); err == nil {
		c.Index = idx
	}
	if c.DocumentID == "" {
		c.DocumentID = docIDFromKey(key)
	}
	if raw := fields["metadata"]; raw != "" {
		_ = json.Unmarshal([]byte(raw), &c.Metadata) // malformed metadata is non-fatal
	}
	return c
}

func docIDFromKey(key string) string {
	trimmed := strings.TrimPrefix(key, keyPrefix)
	if i := strings.LastIndexByte(trimmed, ':'); i > 0 {
		return trimmed[:i]
	}
	return trimmed
}

// encodeVector packs float32 values as little-endian bytes for the FT vector field.
func encodeVector(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
