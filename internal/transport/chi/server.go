package chi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/ragchat/internal/usecase/document"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	memoryuc "github.com/kailas-cloud/ragchat/internal/usecase/memory"
	queryuc "github.com/kailas-cloud/ragchat/internal/usecase/query"
)

// maxUploadSize caps multipart uploads before they reach the ingest pipeline.
const maxUploadSize = 64 << 20

// error codes returned to clients.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeDocumentNotFound = "document_not_found"
	codeProviderError    = "model_provider_error"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires the use case services into HTTP handlers.
type Server struct {
	ingest        *ingestuc.Service
	documents     *documentuc.Service
	query         *queryuc.Service
	chat          *chatuc.Service
	memory        *memoryuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	ingest *ingestuc.Service,
	documents *documentuc.Service,
	query *queryuc.Service,
	chat *chatuc.Service,
	memory *memoryuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		ingest:    ingest,
		documents: documents,
		query:     query,
		chat:      chat,
		memory:    memory,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, codeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrExternalService, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts all handlers on a router.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/documents", s.UploadDocument)
		r.Get("/documents", s.ListDocuments)
		r.Get("/documents/{id}", s.GetDocument)
		r.Get("/documents/{id}/chunks", s.GetDocumentChunks)
		r.Delete("/documents/{id}", s.DeleteDocument)
		r.Post("/search", s.Search)
		r.Post("/chat", s.Chat)
		r.Get("/sessions/{id}/history", s.GetSessionHistory)
		r.Delete("/sessions/{id}", s.ClearSession)
	})
}

// UploadDocument handles POST /api/v1/documents. The file arrives as the
// multipart field "file" and is spooled to disk before ingestion.
func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, `multipart field "file" is required`)
		return
	}
	defer file.Close()

	path, err := spoolUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to spool upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	defer os.Remove(path)

	result := s.ingest.Ingest(r.Context(), path)

	status := http.StatusCreated
	if result.Status == domain.IngestFailed {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

// ListDocuments handles GET /api/v1/documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.documents.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, d := range docs {
		items[i] = documentToResponse(d)
	}
	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Total: len(items)})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(doc))
}

// GetDocumentChunks handles GET /api/v1/documents/{id}/chunks.
func (s *Server) GetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")
	chunks, err := s.documents.Chunks(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]chunkResponse, len(chunks))
	for i, c := range chunks {
		items[i] = chunkToResponse(c)
	}
	writeJSON(w, http.StatusOK, chunkListResponse{DocumentID: id, Items: items, Total: len(items)})
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	chunks, err := s.query.SearchDocuments(r.Context(), req.Query, req.TopK, req.SimilarityThreshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]searchResultItem, len(chunks))
	for i, c := range chunks {
		items[i] = searchResultItem{
			DocumentID: c.DocumentID,
			ChunkIndex: c.Index,
			Content:    c.Content,
			Similarity: c.Similarity,
			Filename:   c.Metadata.Filename,
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

// Chat handles POST /api/v1/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "message is required")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "session_id is required")
		return
	}

	response, chunks, err := s.chat.ProcessQuery(
		r.Context(), req.Message, req.SessionID, req.TopK, req.SimilarityThreshold)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	formatted := s.chat.FormatResponseWithSources(response, chunks)
	writeJSON(w, http.StatusOK, chatResponse{
		SessionID:         req.SessionID,
		FormattedResponse: formatted,
	})
}

// GetSessionHistory handles GET /api/v1/sessions/{id}/history. An optional
// limit query parameter caps the number of returned turns.
func (s *Server) GetSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := gochi.URLParam(r, "id")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, codeBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	turns, err := s.memory.History(r.Context(), id, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]turnResponse, len(turns))
	for i, t := range turns {
		items[i] = turnToResponse(t)
	}
	writeJSON(w, http.StatusOK, historyResponse{SessionID: id, Turns: items, Total: len(items)})
}

// ClearSession handles DELETE /api/v1/sessions/{id}.
func (s *Server) ClearSession(w http.ResponseWriter, r *http.Request) {
	removed, err := s.memory.ClearSession(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clearSessionResponse{TurnsRemoved: removed})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// spoolUpload writes a multipart file to a temp path keeping the original
// extension, which the ingest validator dispatches on.
func spoolUpload(file io.Reader, filename string) (string, error) {
	dir, err := os.MkdirTemp("", "ragchat-upload-*")
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return path, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrExternalService,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}

// --- Wire types ---

type documentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

type chunkResponse struct {
	Index    int                  `json:"index"`
	Content  string               `json:"content"`
	Metadata domain.ChunkMetadata `json:"metadata"`
}

type chunkListResponse struct {
	DocumentID string          `json:"doc_id"`
	Items      []chunkResponse `json:"items"`
	Total      int             `json:"total"`
}

type searchRequest struct {
	Query               string  `json:"query"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type searchResultItem struct {
	DocumentID string  `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Filename   string  `json:"filename,omitempty"`
}

type searchResponse struct {
	Items []searchResultItem `json:"items"`
	Total int                `json:"total"`
}

type chatRequest struct {
	Message             string  `json:"message"`
	SessionID           string  `json:"session_id"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type chatResponse struct {
	SessionID string `json:"session_id"`
	chatuc.FormattedResponse
}

type turnResponse struct {
	Index       int                 `json:"index"`
	UserMessage string              `json:"user_message"`
	AIResponse  string              `json:"ai_response"`
	CreatedAt   time.Time           `json:"created_at"`
	Metadata    domain.TurnMetadata `json:"metadata"`
}

type historyResponse struct {
	SessionID string         `json:"session_id"`
	Turns     []turnResponse `json:"turns"`
	Total     int            `json:"total"`
}

type clearSessionResponse struct {
	TurnsRemoved int `json:"turns_removed"`
}

type healthResponse struct {
	Status string                          `json:"status"`
	Checks map[string]healthuc.CheckResult `json:"checks"`
}

func documentToResponse(d domain.Document) documentResponse {
	return documentResponse{ID: d.ID, Filename: d.Filename, CreatedAt: d.CreatedAt}
}

func chunkToResponse(c domain.Chunk) chunkResponse {
	return chunkResponse{Index: c.Index, Content: c.Content, Metadata: c.Metadata}
}

func turnToResponse(t domain.Turn) turnResponse {
	return turnResponse{
		Index:       t.Index,
		UserMessage: t.UserMessage,
		AIResponse:  t.AIResponse,
		CreatedAt:   t.CreatedAt,
		Metadata:    t.Metadata,
	}
}
