package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	"github.com/kailas-cloud/ragchat/internal/metrics"
)

// maxEmbeddingChars is the input length limit; longer texts are truncated with a warning.
const maxEmbeddingChars = 8191

// Embedder is an embedding provider using the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	maxRetries int
	logger     *zap.Logger
}

// Config holds the OpenAI client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Provider   string
	MaxRetries int
	Timeout    time.Duration
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		maxRetries: maxRetries,
		logger:     cfg.Logger,
	}
}

// Embed implements domain.Embedder. The text is normalized and truncated before
// the API call; transient failures are retried with exponential backoff.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	cleaned, err := e.prepareInput(text)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	resp, err := e.createWithRetry(ctx, []string{cleaned})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrExternalService)
	}

	vector := resp.Data[0].Embedding
	if err := e.checkVector(vector); err != nil {
		return domain.EmbeddingResult{}, err
	}

	return domain.EmbeddingResult{
		Embedding:    vector,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Empty texts yield zero vectors at
// their positions so callers keep positional alignment with their inputs.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("no texts to embed: %w", domain.ErrValidation)
	}

	dim := e.dimension()

	// Track which positions carry real text; empty ones get zero vectors.
	inputs := make([]string, 0, len(texts))
	positions := make([]int, 0, len(texts))
	for i, text := range texts {
		cleaned := cleanText(text)
		if cleaned == "" {
			continue
		}
		if len(cleaned) > maxEmbeddingChars {
			e.logger.Warn("truncating embedding input",
				zap.Int("position", i),
				zap.Int("length", len(cleaned)),
				zap.Int("limit", maxEmbeddingChars))
			cleaned = truncate(cleaned)
		}
		inputs = append(inputs, cleaned)
		positions = append(positions, i)
	}

	if len(inputs) == 0 {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("all texts empty after cleaning: %w", domain.ErrValidation)
	}

	resp, err := e.createWithRetry(ctx, inputs)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	if len(resp.Data) != len(inputs) {
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "count_mismatch").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding count mismatch: sent %d, got %d: %w",
			len(inputs), len(resp.Data), domain.ErrExternalService)
	}

	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = domain.ZeroVector(dim)
	}
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(positions) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding index %d out of range: %w",
				item.Index, domain.ErrExternalService)
		}
		if err := e.checkVector(item.Embedding); err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		embeddings[positions[item.Index]] = item.Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (e *Embedder) prepareInput(text string) (string, error) {
	cleaned := cleanText(text)
	if cleaned == "" {
		return "", fmt.Errorf("empty text after cleaning: %w", domain.ErrValidation)
	}
	if len(cleaned) > maxEmbeddingChars {
		e.logger.Warn("truncating embedding input",
			zap.Int("length", len(cleaned)),
			zap.Int("limit", maxEmbeddingChars))
		cleaned = truncate(cleaned)
	}
	return cleaned, nil
}

// truncate cuts s to at most maxEmbeddingChars bytes, backing off to a rune
// boundary so the API never receives a split multi-byte character.
func truncate(s string) string {
	if len(s) <= maxEmbeddingChars {
		return s
	}
	cut := maxEmbeddingChars
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// createWithRetry calls the embeddings API with exponential backoff (2^attempt seconds).
func (e *Embedder) createWithRetry(ctx context.Context, inputs []string) (openai.EmbeddingResponse, error) {
	req := openai.EmbeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			e.logger.Warn("retrying embedding request",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return openai.EmbeddingResponse{}, fmt.Errorf("embedding retry canceled: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		resp, err := e.client.CreateEmbeddings(ctx, req)
		duration := time.Since(start)

		if err != nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
			metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), "api_error").Inc()
			lastErr = err
			continue
		}

		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
		metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

		if resp.Usage.TotalTokens > 0 {
			metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(resp.Usage.TotalTokens))
		}

		return resp, nil
	}

	return openai.EmbeddingResponse{}, parseAPIError(lastErr)
}

// checkVector rejects malformed vectors and logs values outside the expected range.
func (e *Embedder) checkVector(vector []float32) error {
	if err := domain.ValidateVector(vector, e.dimension()); err != nil {
		return fmt.Errorf("embedding response: %w", err)
	}
	if n := domain.CountOutOfRange(vector); n > 0 {
		e.logger.Warn("embedding values outside expected range",
			zap.Int("count", n),
			zap.String("model", string(e.model)))
	}
	return nil
}

func (e *Embedder) dimension() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return domain.ModelDimension(string(e.model))
}

// cleanText collapses whitespace and strips NUL bytes.
func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.Join(strings.Fields(text), " ")
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrExternalService for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrExternalService

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
