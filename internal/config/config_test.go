package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		OpenAI:   OpenAIConfig{APIKey: "test-key"},
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.OpenAI.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %q", cfg.OpenAI.EmbeddingModel)
	}
	if cfg.OpenAI.ChatModel != "gpt-4o-mini" {
		t.Errorf("expected default chat model, got %q", cfg.OpenAI.ChatModel)
	}
	if cfg.OpenAI.MaxRetries != 3 {
		t.Errorf("expected MaxRetries=3, got %d", cfg.OpenAI.MaxRetries)
	}
	if cfg.Ingest.MaxFileSizeMB != 50 {
		t.Errorf("expected MaxFileSizeMB=50, got %d", cfg.Ingest.MaxFileSizeMB)
	}
	if cfg.Ingest.ChunkSize != 512 {
		t.Errorf("expected ChunkSize=512, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 50 {
		t.Errorf("expected ChunkOverlap=50, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Ingest.BatchSize != 10 {
		t.Errorf("expected BatchSize=10, got %d", cfg.Ingest.BatchSize)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("expected TopK=4, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.7 {
		t.Errorf("expected SimilarityThreshold=0.7, got %g", cfg.Retrieval.SimilarityThreshold)
	}
	if cfg.Chat.MaxTokens != 1000 {
		t.Errorf("expected MaxTokens=1000, got %d", cfg.Chat.MaxTokens)
	}
	if cfg.Chat.MemoryTurns != 5 {
		t.Errorf("expected MemoryTurns=5, got %d", cfg.Chat.MemoryTurns)
	}
	if cfg.Index.HNSWM != 32 {
		t.Errorf("expected HNSWM=32, got %d", cfg.Index.HNSWM)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 120, ShutdownSec: 5},
		Ingest:    IngestConfig{ChunkSize: 256, ChunkOverlap: 20, BatchSize: 4},
		Retrieval: RetrievalConfig{TopK: 10, SimilarityThreshold: 0.5},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Ingest.ChunkSize != 256 {
		t.Errorf("expected ChunkSize=256, got %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Ingest.ChunkOverlap != 20 {
		t.Errorf("expected ChunkOverlap=20, got %d", cfg.Ingest.ChunkOverlap)
	}
	if cfg.Retrieval.TopK != 10 {
		t.Errorf("expected TopK=10, got %d", cfg.Retrieval.TopK)
	}
	if cfg.Retrieval.SimilarityThreshold != 0.5 {
		t.Errorf("expected SimilarityThreshold=0.5, got %g", cfg.Retrieval.SimilarityThreshold)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing database addrs")
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.OpenAI.APIKey = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestValidate_OverlapExceedsChunkSize(t *testing.T) {
	cfg := validConfig()
	cfg.Ingest.ChunkSize = 100
	cfg.Ingest.ChunkOverlap = 100

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for overlap >= chunk size")
	}
}

func TestValidate_ThresholdAboveOne(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.SimilarityThreshold = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for threshold > 1")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("RAGCHAT_TEST_VAR", "secret")
	defer os.Unsetenv("RAGCHAT_TEST_VAR")

	in := []byte("api_key: ${RAGCHAT_TEST_VAR}\nmodel: ${RAGCHAT_UNSET_VAR:-gpt-4o-mini}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: gpt-4o-mini\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}
