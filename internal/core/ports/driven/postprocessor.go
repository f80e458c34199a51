package driven

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// PostProcessor is one pipeline stage. The first stage receives nil chunks
// and produces them from doc; later stages refine what they are given.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.ParsedDocument, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline runs its stages in order and returns the last
// stage's chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.ParsedDocument) ([]domain.Chunk, error)
}
