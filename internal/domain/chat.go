package domain

import "context"

// Chat message roles as sent to the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// GenerationRequest is the input for a chat completion.
type GenerationRequest struct {
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
}

// Generator produces a chat completion for the given messages.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}
