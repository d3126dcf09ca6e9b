package chat

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

const (
	groundedTemperature = 0.1
	fallbackTemperature = 0.3

	fallbackMaxTokens = 500

	// historyWindow bounds how many past turns enter the prompt.
	historyWindow         = 10
	fallbackHistoryWindow = 5

	previewLength = 200
)

var citationPattern = regexp.MustCompile(`(?i)\[source\s+(\d+(?:,\s*\d+)*)\]`)

// groundingKeywords flag responses that never mention their context.
var groundingKeywords = []string{"source", "context", "document", "information"}

// Citation is one [Source X] reference found in a response.
type Citation struct {
	Text    string `json:"text"`
	Sources []int  `json:"source_numbers"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
}

// SourceRef describes one retrieved chunk backing a response.
type SourceRef struct {
	Number          int     `json:"number"`
	Filename        string  `json:"filename"`
	ContentPreview  string  `json:"content_preview"`
	SimilarityScore float64 `json:"similarity_score"`
	ChunkIndex      int     `json:"chunk_id"`
	DocumentID      string  `json:"doc_id"`
}

// FormattedResponse is a response enriched with citations and sources.
type FormattedResponse struct {
	Response    string      `json:"response"`
	Citations   []Citation  `json:"citations"`
	Sources     []SourceRef `json:"sources"`
	SourceCount int         `json:"source_count"`
}

// Service orchestrates retrieval-augmented response generation.
type Service struct {
	search    DocumentSearcher
	memory    Memory
	gen       Generator
	maxTokens int
	logger    *zap.Logger
}

// New creates a chat service. maxTokens bounds grounded responses.
func New(search DocumentSearcher, memory Memory, gen Generator, maxTokens int, logger *zap.Logger) *Service {
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &Service{
		search:    search,
		memory:    memory,
		gen:       gen,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// ProcessQuery runs the full workflow: retrieve context, generate a response,
// and record the turn. Returns the response and the chunks it was grounded on.
func (s *Service) ProcessQuery(ctx context.Context, query, sessionID string, topK int, threshold float64) (string, []domain.Chunk, error) {
	chunks, err := s.search.SearchDocuments(ctx, query, topK, threshold)
	if err != nil {
		return "", nil, fmt.Errorf("retrieve context: %w", err)
	}

	history, err := s.memory.History(ctx, sessionID, 0)
	if err != nil {
		return "", nil, fmt.Errorf("load history: %w", err)
	}

	var response string
	if len(chunks) > 0 {
		response, err = s.GenerateResponse(ctx, query, chunks, history)
		if err != nil {
			return "", nil, err
		}
	} else {
		s.logger.Warn("no relevant documents found, using fallback response",
			zap.String("session_id", sessionID))
		response = s.generateFallback(ctx, query, history)
	}

	scores := make([]float64, len(chunks))
	for i, c := range chunks {
		scores[i] = c.Similarity
	}
	meta := domain.TurnMetadata{
		RetrievedChunks:  len(chunks),
		SimilarityScores: scores,
		TurnTimestamp:    time.Now().UTC(),
	}
	if err := s.memory.StoreTurn(ctx, sessionID, query, response, meta); err != nil {
		return "", nil, fmt.Errorf("store turn: %w", err)
	}

	return response, chunks, nil
}

// GenerateResponse produces a grounded answer from retrieved chunks and history.
func (s *Service) GenerateResponse(ctx context.Context, query string, chunks []domain.Chunk, history []domain.Turn) (string, error) {
	contextText := s.BuildContextString(chunks)
	messages := buildConversation(systemPrompt, history, historyWindow,
		fmt.Sprintf(userMessageTemplate, contextText, query))

	text, err := s.gen.Generate(ctx, domain.GenerationRequest{
		Messages:    messages,
		Temperature: groundedTemperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate response: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model: %w", domain.ErrExternalService)
	}

	s.validateGrounding(text)

	return text, nil
}

// generateFallback answers without context. It never fails: generation errors
// degrade to a canned apology.
func (s *Service) generateFallback(ctx context.Context, query string, history []domain.Turn) string {
	messages := buildConversation(fallbackSystemPrompt, history, fallbackHistoryWindow,
		fmt.Sprintf(fallbackUserTemplate, query))

	text, err := s.gen.Generate(ctx, domain.GenerationRequest{
		Messages:    messages,
		Temperature: fallbackTemperature,
		MaxTokens:   fallbackMaxTokens,
	})
	if err != nil {
		s.logger.Error("failed to generate fallback response", zap.Error(err))
		return apologyError
	}
	if strings.TrimSpace(text) == "" {
		return apologyEmpty
	}
	return text
}

// BuildContextString renders retrieved chunks as numbered sources.
func (s *Service) BuildContextString(chunks []domain.Chunk) string {
	if len(chunks) == 0 {
		return noDocsContext
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("[Source %d: %s (Similarity: %.3f)]\n%s\n",
			i+1, sourceName(chunk), chunk.Metadata.SimilarityScore, chunk.Content)
	}
	return strings.Join(parts, "\n")
}

// ParseCitations extracts [Source X] references from a response.
func (s *Service) ParseCitations(text string) []Citation {
	var citations []Citation
	for _, loc := range citationPattern.FindAllStringSubmatchIndex(text, -1) {
		full := text[loc[0]:loc[1]]
		group := text[loc[2]:loc[3]]

		var sources []int
		for _, part := range strings.Split(group, ",") {
			if n, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
				sources = append(sources, n)
			}
		}

		citations = append(citations, Citation{
			Text:    full,
			Sources: sources,
			Start:   loc[0],
			End:     loc[1],
		})
	}
	return citations
}

// FormatResponseWithSources pairs a response with its citations and sources.
func (s *Service) FormatResponseWithSources(text string, chunks []domain.Chunk) FormattedResponse {
	sources := make([]SourceRef, len(chunks))
	for i, chunk := range chunks {
		preview := chunk.Content
		if len(preview) > previewLength {
			preview = preview[:previewLength] + "..."
		}
		sources[i] = SourceRef{
			Number:          i + 1,
			Filename:        sourceName(chunk),
			ContentPreview:  preview,
			SimilarityScore: chunk.Metadata.SimilarityScore,
			ChunkIndex:      chunk.Index,
			DocumentID:      chunk.DocumentID,
		}
	}

	return FormattedResponse{
		Response:    text,
		Citations:   s.ParseCitations(text),
		Sources:     sources,
		SourceCount: len(chunks),
	}
}

// validateGrounding logs suspicious responses; it never rejects them.
func (s *Service) validateGrounding(text string) {
	if len(text) < 10 {
		s.logger.Warn("suspiciously short response", zap.String("response", text))
	}

	lower := strings.ToLower(text)
	for _, kw := range groundingKeywords {
		if strings.Contains(lower, kw) {
			return
		}
	}
	s.logger.Warn("response may not be properly grounded in context")
}

// buildConversation assembles system prompt, windowed history, and the final user message.
func buildConversation(system string, history []domain.Turn, window int, userMessage string) []domain.ChatMessage {
	if len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]domain.ChatMessage, 0, 2+len(history)*2)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages,
			domain.ChatMessage{Role: domain.RoleUser, Content: turn.UserMessage},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: turn.AIResponse},
		)
	}
	return append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: userMessage})
}

func sourceName(chunk domain.Chunk) string {
	if chunk.Metadata.Filename != "" {
		return chunk.Metadata.Filename
	}
	return "Document " + chunk.DocumentID
}
