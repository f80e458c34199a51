package driven

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// VectorStore persists chunk vectors and serves hybrid search.
// Records are keyed by chunk ID; inserting an existing ID replaces it.
type VectorStore interface {
	// Insert stores a record and returns the number of rows written.
	Insert(ctx context.Context, record *domain.VectorRecord) (int, error)

	// Delete removes records by ID and returns the number removed.
	Delete(ctx context.Context, ids []string) (int, error)

	// Get returns the records that exist among ids.
	Get(ctx context.Context, ids []string) ([]domain.VectorRecord, error)

	// Search ranks records against the query by weighted dense and sparse similarity.
	Search(ctx context.Context, query domain.SearchQuery, params domain.SearchParams) ([]domain.VectorHit, error)
}

// MetadataStore persists one DocumentRecord per ingested file.
type MetadataStore interface {
	// Upsert inserts or replaces the record keyed by its name.
	Upsert(ctx context.Context, record *domain.DocumentRecord) (int, error)

	// Get returns the record for name, or domain.ErrNotFound.
	Get(ctx context.Context, name string) (*domain.DocumentRecord, error)

	// Delete removes the record for name and returns the number removed.
	Delete(ctx context.Context, name string) (int, error)

	// ListAllNames returns every record name.
	ListAllNames(ctx context.Context) ([]string, error)

	// SharedChunkIDs maps each of ids that a record other than name also
	// references to one such record, the lowest by name.
	SharedChunkIDs(ctx context.Context, name string, ids []string) (map[string]string, error)
}

// AssetStore persists side-files referenced by a chunk's content URL.
type AssetStore interface {
	// Save writes data under name and returns its content URL.
	Save(ctx context.Context, name string, data []byte) (string, error)

	// Remove deletes the side-file at url. Missing files are not an error.
	Remove(ctx context.Context, url string) error
}
