package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/config"
	dbRedis "github.com/kailas-cloud/ragchat/internal/db/redis"
	"github.com/kailas-cloud/ragchat/internal/docproc"
	"github.com/kailas-cloud/ragchat/internal/domain"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/metrics"
	chunkrepo "github.com/kailas-cloud/ragchat/internal/repository/chunk"
	documentrepo "github.com/kailas-cloud/ragchat/internal/repository/document"
	"github.com/kailas-cloud/ragchat/internal/repository/embcache"
	turnrepo "github.com/kailas-cloud/ragchat/internal/repository/turn"
	chiTransport "github.com/kailas-cloud/ragchat/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/ragchat/internal/transport/openai"
	chatuc "github.com/kailas-cloud/ragchat/internal/usecase/chat"
	documentuc "github.com/kailas-cloud/ragchat/internal/usecase/document"
	healthuc "github.com/kailas-cloud/ragchat/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/ragchat/internal/usecase/ingest"
	memoryuc "github.com/kailas-cloud/ragchat/internal/usecase/memory"
	queryuc "github.com/kailas-cloud/ragchat/internal/usecase/query"
	"github.com/kailas-cloud/ragchat/internal/version"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ragchat API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create Redis store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Redis not ready", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	// Register model metrics explicitly (no init())
	metrics.RegisterModelMetrics()

	dimensions := cfg.OpenAI.Dimensions
	if dimensions == 0 {
		dimensions = domain.ModelDimension(cfg.OpenAI.EmbeddingModel)
	}

	modelTimeout := time.Duration(cfg.OpenAI.TimeoutSec) * time.Second
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.OpenAI.APIKey,
		BaseURL:    cfg.OpenAI.BaseURL,
		Model:      cfg.OpenAI.EmbeddingModel,
		Dimensions: cfg.OpenAI.Dimensions,
		Provider:   "openai",
		MaxRetries: cfg.OpenAI.MaxRetries,
		Timeout:    modelTimeout,
		Logger:     logger,
	})

	// Queries repeat across a session; documents do not. Only the query path
	// goes through the memo.
	queryEmbedder := embcache.New(baseEmbedder, metrics.EmbeddingCacheTotal)

	generator := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.ChatModel,
		Provider: "openai",
		Timeout:  modelTimeout,
		Logger:   logger,
	})
	logger.Info("Model clients created",
		zap.String("embedding_model", cfg.OpenAI.EmbeddingModel),
		zap.String("chat_model", cfg.OpenAI.ChatModel),
		zap.Int("dimensions", dimensions),
	)

	docRepo := documentrepo.New(store)
	chunkRepo := chunkrepo.New(store, chunkrepo.IndexParams{
		Dimension:   dimensions,
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	turnRepo := turnrepo.New(store)

	if err := chunkRepo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}
	logger.Info("Vector index ready", zap.String("index", chunkrepo.IndexName))

	converter := docproc.NewTextConverter(logger)
	chunker := docproc.NewWindowChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	ingestSvc := ingestuc.New(converter, chunker, docRepo, chunkRepo, baseEmbedder, ingestuc.Config{
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
		BatchSize:      cfg.Ingest.BatchSize,
		MaxFileSizeMB:  cfg.Ingest.MaxFileSizeMB,
	}, logger)
	docSvc := documentuc.New(docRepo, chunkRepo, logger)
	querySvc := queryuc.New(chunkRepo, queryEmbedder, cfg.Retrieval.TopK, cfg.Retrieval.SimilarityThreshold, logger)
	memorySvc := memoryuc.New(turnRepo, cfg.Chat.MemoryTurns, logger)
	chatSvc := chatuc.New(querySvc, memorySvc, generator, cfg.Chat.MaxTokens, logger)
	healthSvc := healthuc.New(store, baseEmbedder)

	server := chiTransport.NewServer(ingestSvc, docSvc, querySvc, chatSvc, memorySvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
