package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func newCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		resp := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{
				"prompt_tokens":     15,
				"completion_tokens": 7,
				"total_tokens":      22,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestGenerator_Generate(t *testing.T) {
	server := newCompletionServer(t, "The answer is in [Source 1].")
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	got, err := gen.Generate(context.Background(), domain.GenerationRequest{
		Messages: []domain.ChatMessage{
			{Role: domain.RoleSystem, Content: "be helpful"},
			{Role: domain.RoleUser, Content: "question"},
		},
		Temperature: 0.1,
		MaxTokens:   1000,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if got != "The answer is in [Source 1]." {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestGenerator_Generate_NoMessages(t *testing.T) {
	gen := NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  "http://unused",
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestGenerator_Generate_EmptyContent(t *testing.T) {
	server := newCompletionServer(t, "")
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "question"}},
	})
	if !errors.Is(err, domain.ErrExternalService) {
		t.Errorf("expected ErrExternalService, got %v", err)
	}
}

func TestGenerator_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "overloaded",
				"type":    "server_error",
			},
		})
	}))
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), domain.GenerationRequest{
		Messages: []domain.ChatMessage{{Role: domain.RoleUser, Content: "question"}},
	})
	if !errors.Is(err, domain.ErrExternalService) {
		t.Errorf("expected ErrExternalService, got %v", err)
	}
}
