package conversation

import "context"

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is an internal message representation that can include system prompts.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is a single completion request. ConversationID is a fresh
// identifier tagged onto the request so any downstream logging or caching the
// completion service does cannot bleed across conversations.
type LLMRequest struct {
	Model          string
	System         []string
	Messages       []ChatMessage
	MaxTokens      int32
	Temperature    float32
	ConversationID string
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is the completion-service capability consumed by the pipeline:
// opaque text in, text out.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
