package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore is an in-memory implementation of driven.VectorStore.
// Search is a brute-force scan over every record.
type VectorStore struct {
	mu      sync.RWMutex
	order   []string
	records map[string]domain.VectorRecord
}

// NewVectorStore creates a new in-memory vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{
		records: make(map[string]domain.VectorRecord),
	}
}

// Insert stores a record, replacing any record with the same ID.
func (s *VectorStore) Insert(_ context.Context, record *domain.VectorRecord) (int, error) {
	if record == nil || record.ID == "" {
		return 0, domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; !exists {
		s.order = append(s.order, record.ID)
	}
	s.records[record.ID] = cloneRecord(record)
	return 1, nil
}

// Delete removes records by ID.
func (s *VectorStore) Delete(_ context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			removed[id] = true
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}

	order := s.order[:0]
	for _, id := range s.order {
		if !removed[id] {
			order = append(order, id)
		}
	}
	s.order = order
	return len(removed), nil
}

// Get returns the records that exist among ids, in the order requested.
func (s *VectorStore) Get(_ context.Context, ids []string) ([]domain.VectorRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.VectorRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.records[id]; ok {
			out = append(out, cloneRecord(&rec))
		}
	}
	return out, nil
}

// Search ranks every record against the query.
func (s *VectorStore) Search(
	_ context.Context,
	query domain.SearchQuery,
	params domain.SearchParams,
) ([]domain.VectorHit, error) {
	s.mu.RLock()
	records := make([]domain.VectorRecord, 0, len(s.order))
	for _, id := range s.order {
		records = append(records, s.records[id])
	}
	s.mu.RUnlock()

	return rank.TopK(query, records, params), nil
}

// Len returns the number of stored records.
func (s *VectorStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cloneRecord(r *domain.VectorRecord) domain.VectorRecord {
	c := *r
	c.Embedding.Dense = append([]float32(nil), r.Embedding.Dense...)
	c.Embedding.Sparse = maps.Clone(r.Embedding.Sparse)
	return c
}
