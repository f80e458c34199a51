package driven

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// ChatModel streams completions from Ollama or an OpenAI-style server.
type ChatModel interface {
	// Chat starts a completion over messages. The returned channel yields
	// text tokens, then exactly one terminal event: Done with the total
	// token count, or Err. The channel is closed after the terminal event.
	// Cancelling ctx stops the stream.
	Chat(ctx context.Context, messages []domain.ChatMessage, opts domain.ChatOptions) (<-chan domain.ChatEvent, error)

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// AIConfigValidator pings the provider that settings describe before they
// are saved.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateLLM(settings *domain.LLMSettings) error
}
