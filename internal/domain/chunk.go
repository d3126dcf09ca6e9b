package domain

// ChunkCandidate is a pre-embedding slice of a converted document.
type ChunkCandidate struct {
	Text    string
	Heading string
	Page    int
}

// ChunkMetadata carries per-chunk provenance. Stored as JSON in the chunk hash.
type ChunkMetadata struct {
	Filename        string  `json:"filename,omitempty"`
	Heading         string  `json:"heading,omitempty"`
	Page            int     `json:"page,omitempty"`
	BatchID         int     `json:"batch_id,omitempty"`
	EmbeddingModel  string  `json:"embedding_model,omitempty"`
	ChunkLength     int     `json:"chunk_length,omitempty"`
	SimilarityScore float64 `json:"similarity_score,omitempty"`
}

// Chunk is an embedded document slice. Similarity is populated by search,
// both on the struct and in Metadata for downstream formatting.
type Chunk struct {
	DocumentID string
	Index      int
	Content    string
	Embedding  []float32
	Similarity float64
	Metadata   ChunkMetadata
}
