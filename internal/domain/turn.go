package domain

import "time"

// TurnMetadata records retrieval stats for a stored conversation turn.
type TurnMetadata struct {
	RetrievedChunks  int       `json:"retrieved_chunks"`
	SimilarityScores []float64 `json:"similarity_scores,omitempty"`
	TurnTimestamp    time.Time `json:"turn_timestamp,omitempty"`
}

// Turn is a single user/assistant exchange within a chat session.
// Index is monotonically increasing per session, starting at 0.
type Turn struct {
	SessionID   string
	Index       int
	UserMessage string
	AIResponse  string
	CreatedAt   time.Time
	Metadata    TurnMetadata
}
