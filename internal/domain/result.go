package domain

// IngestStatus is the terminal state of an ingestion run.
type IngestStatus string

const (
	// IngestSuccess means chunks were produced and storage was attempted.
	IngestSuccess IngestStatus = "success"
	// IngestFailed means no chunk reached the store.
	IngestFailed IngestStatus = "failed"
)

// IngestResult summarizes a document ingestion run. Ingestion never returns
// an error directly: failures surface here as Status + ErrorMessage.
type IngestResult struct {
	DocumentID    string       `json:"doc_id"`
	Filename      string       `json:"filename"`
	ChunksCreated int          `json:"chunks_created"`
	Status        IngestStatus `json:"status"`
	ErrorMessage  string       `json:"error_message,omitempty"`
}
