package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService exposes ingested documents and their stored chunks.
type DocumentService struct {
	metadata driven.MetadataStore
	vectors  driven.VectorStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(metadata driven.MetadataStore, vectors driven.VectorStore) *DocumentService {
	return &DocumentService{
		metadata: metadata,
		vectors:  vectors,
	}
}

// List returns every document record, sorted by name.
func (s *DocumentService) List(ctx context.Context) ([]domain.DocumentRecord, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotImplemented
	}

	names, err := s.metadata.ListAllNames(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	records := make([]domain.DocumentRecord, 0, len(names))
	for _, name := range names {
		rec, err := s.metadata.Get(ctx, name)
		if err != nil {
			// Removed between listing and reading
			continue
		}
		records = append(records, *rec)
	}
	return records, nil
}

// Get retrieves the record for a file path.
func (s *DocumentService) Get(ctx context.Context, path string) (*domain.DocumentRecord, error) {
	if s.metadata == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.metadata.Get(ctx, DocumentName(path))
}

// Chunks returns the stored vector records of a document in chunk order.
// IDs missing from the vector store are skipped.
func (s *DocumentService) Chunks(ctx context.Context, path string) ([]domain.VectorRecord, error) {
	if s.vectors == nil {
		return nil, domain.ErrNotImplemented
	}

	rec, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if len(rec.ChunkIDs) == 0 {
		return []domain.VectorRecord{}, nil
	}

	stored, err := s.vectors.Get(ctx, rec.ChunkIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.VectorRecord, len(stored))
	for _, r := range stored {
		byID[r.ID] = r
	}

	ordered := make([]domain.VectorRecord, 0, len(stored))
	for _, id := range rec.ChunkIDs {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}
