package driving

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// RetrievalService assembles a cited knowledge context for a conversation.
type RetrievalService interface {
	// Assemble searches the latest user turns and returns the grouped,
	// deduplicated context with its citation map.
	Assemble(ctx context.Context, conversation []domain.ChatMessage) (*domain.KnowledgeContext, error)
}

// ChatService streams retrieval-augmented answers.
type ChatService interface {
	// StreamAnswer returns a channel of cumulative answer frames. The last
	// frame is always the end sentinel, after which the channel is closed.
	StreamAnswer(ctx context.Context, history []domain.ChatMessage) <-chan domain.ChatFrame
}
