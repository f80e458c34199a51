package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// Ensure MetadataStore implements the interface.
var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore is an in-memory implementation of driven.MetadataStore.
type MetadataStore struct {
	mu      sync.RWMutex
	records map[string]domain.DocumentRecord
}

// NewMetadataStore creates a new in-memory metadata store.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{
		records: make(map[string]domain.DocumentRecord),
	}
}

// Upsert stores or replaces a record.
func (s *MetadataStore) Upsert(_ context.Context, record *domain.DocumentRecord) (int, error) {
	if record == nil || record.Name == "" {
		return 0, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := *record
	rec.ChunkIDs = append([]string(nil), record.ChunkIDs...)
	s.records[rec.Name] = rec
	return 1, nil
}

// Get retrieves a record by name.
func (s *MetadataStore) Get(_ context.Context, name string) (*domain.DocumentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[name]
	if !ok {
		return nil, domain.ErrNotFound
	}
	rec.ChunkIDs = append([]string(nil), rec.ChunkIDs...)
	return &rec, nil
}

// Delete removes a record by name.
func (s *MetadataStore) Delete(_ context.Context, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[name]; !ok {
		return 0, nil
	}
	delete(s.records, name)
	return 1, nil
}

// ListAllNames returns every record name, sorted.
func (s *MetadataStore) ListAllNames(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.records))
	for name := range s.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// SharedChunkIDs maps each of ids that another record also references to
// the first such record by name.
func (s *MetadataStore) SharedChunkIDs(_ context.Context, name string, ids []string) (map[string]string, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	shared := make(map[string]string)
	for other, rec := range s.records {
		if other == name {
			continue
		}
		for _, id := range rec.ChunkIDs {
			if owner, seen := shared[id]; want[id] && (!seen || other < owner) {
				shared[id] = other
			}
		}
	}
	return shared, nil
}
