// Package hybrid composes a dense embedding service with a sparse
// encoder into the single EmbeddingModel the core depends on.
package hybrid

import (
	"context"
	"fmt"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// Ensure Model implements the interface.
var _ driven.EmbeddingModel = (*Model)(nil)

// Model produces dense and sparse vectors for one text.
type Model struct {
	dense  driven.EmbeddingService
	sparse driven.SparseEncoder
}

// New creates a hybrid model. A nil dense service yields sparse-only
// embeddings, which still rank through the lexical side of the search.
func New(dense driven.EmbeddingService, sparse driven.SparseEncoder) *Model {
	return &Model{dense: dense, sparse: sparse}
}

// Encode returns the hybrid embedding of text.
func (m *Model) Encode(ctx context.Context, text string) (domain.Embedding, error) {
	var emb domain.Embedding
	if m.dense != nil {
		vec, err := m.dense.Embed(ctx, text)
		if err != nil {
			return domain.Embedding{}, fmt.Errorf("dense embedding: %w", err)
		}
		emb.Dense = vec
	}
	if m.sparse != nil {
		emb.Sparse = m.sparse.EncodeSparse(text)
	}
	return emb, nil
}

// Name identifies the model for logging.
func (m *Model) Name() string {
	switch {
	case m.dense == nil:
		return "lexical"
	case m.sparse == nil:
		return m.dense.ModelName()
	default:
		return m.dense.ModelName() + "+lexical"
	}
}
