package driven

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// EmbeddingModel encodes one text into dense and sparse vectors.
// It is the only embedding port the core depends on.
type EmbeddingModel interface {
	// Encode returns the hybrid embedding of text.
	Encode(ctx context.Context, text string) (domain.Embedding, error)

	// Name identifies the model for logging.
	Name() string
}

// EmbeddingService is a remote dense embedding API such as Ollama or
// OpenAI. An EmbeddingModel pairs it with a SparseEncoder.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
	// Ping makes the cheapest request the API offers.
	Ping(ctx context.Context) error
	Close() error
}

// SparseEncoder produces lexical term-weight vectors.
type SparseEncoder interface {
	// EncodeSparse maps text to term indices and weights.
	EncodeSparse(text string) map[uint32]float32
}
