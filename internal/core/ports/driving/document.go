package driving

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// DocumentService exposes stored document records for display.
type DocumentService interface {
	// List returns every document record, sorted by name.
	List(ctx context.Context) ([]domain.DocumentRecord, error)

	// Get returns the record for one file path.
	Get(ctx context.Context, path string) (*domain.DocumentRecord, error)

	// Chunks returns the stored vector records of a document in chunk order.
	Chunks(ctx context.Context, path string) ([]domain.VectorRecord, error)
}
