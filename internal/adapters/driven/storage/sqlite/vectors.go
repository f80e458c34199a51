package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/custodia-labs/tinyrag/internal/adapters/driven/storage/rank"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// ==================== Vector Store ====================

// vectorStore implements driven.VectorStore.
type vectorStore struct {
	store *Store
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Insert stores a vector record, replacing any record with the same ID.
func (s *vectorStore) Insert(ctx context.Context, record *domain.VectorRecord) (int, error) {
	if record == nil || record.ID == "" {
		return 0, domain.ErrInvalidInput
	}

	metaJSON, err := json.Marshal(record.Meta)
	if err != nil {
		return 0, fmt.Errorf("marshalling meta: %w", err)
	}
	sparseJSON, err := json.Marshal(record.Embedding.Sparse)
	if err != nil {
		return 0, fmt.Errorf("marshalling sparse vector: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO vectors (id, content, meta, dense, sparse)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			meta = excluded.meta,
			dense = excluded.dense,
			sparse = excluded.sparse
	`, record.ID, record.Content, string(metaJSON),
		float32SliceToBytes(record.Embedding.Dense), string(sparseJSON))
	if err != nil {
		return 0, fmt.Errorf("saving vector: %w", err)
	}
	return 1, nil
}

// Delete removes vector records by ID.
func (s *vectorStore) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	total := 0
	for batch := range slices.Chunk(ids, maxBatch) {
		//nolint:gosec // G202: placeholders only, values are bound
		result, err := s.store.db.ExecContext(ctx,
			"DELETE FROM vectors WHERE id IN ("+placeholders(len(batch))+")", stringArgs(batch)...)
		if err != nil {
			return total, fmt.Errorf("deleting vectors: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("counting deleted rows: %w", err)
		}
		total += int(n)
	}
	return total, nil
}

// Get returns the records that exist among ids, in the order requested.
func (s *vectorStore) Get(ctx context.Context, ids []string) ([]domain.VectorRecord, error) {
	if len(ids) == 0 {
		return []domain.VectorRecord{}, nil
	}

	byID := make(map[string]domain.VectorRecord, len(ids))
	for batch := range slices.Chunk(ids, maxBatch) {
		if err := s.getBatch(ctx, batch, byID); err != nil {
			return nil, err
		}
	}

	out := make([]domain.VectorRecord, 0, len(byID))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

func (s *vectorStore) getBatch(ctx context.Context, ids []string, into map[string]domain.VectorRecord) error {
	//nolint:gosec // G202: placeholders only, values are bound
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, content, meta, dense, sparse FROM vectors WHERE id IN ("+placeholders(len(ids))+")",
		stringArgs(ids)...)
	if err != nil {
		return fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanVector(rows)
		if err != nil {
			return err
		}
		into[rec.ID] = *rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating vectors: %w", err)
	}
	return nil
}

// Search scans every stored vector and returns the best hybrid matches.
func (s *vectorStore) Search(
	ctx context.Context,
	query domain.SearchQuery,
	params domain.SearchParams,
) ([]domain.VectorHit, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT id, content, meta, dense, sparse FROM vectors ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var records []domain.VectorRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanVector(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return rank.TopK(query, records, params), nil
}

// scanVector scans a vector record from *sql.Rows.
func scanVector(rows *sql.Rows) (*domain.VectorRecord, error) {
	var rec domain.VectorRecord
	var metaJSON, sparseJSON string
	var denseBlob []byte

	if err := rows.Scan(&rec.ID, &rec.Content, &metaJSON, &denseBlob, &sparseJSON); err != nil {
		return nil, fmt.Errorf("scanning vector: %w", err)
	}

	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &rec.Meta); err != nil {
			return nil, fmt.Errorf("unmarshaling meta: %w", err)
		}
	}
	if sparseJSON != "" && sparseJSON != "null" {
		if err := json.Unmarshal([]byte(sparseJSON), &rec.Embedding.Sparse); err != nil {
			return nil, fmt.Errorf("unmarshaling sparse vector: %w", err)
		}
	}
	rec.Embedding.Dense = bytesToFloat32Slice(denseBlob)

	return &rec, nil
}
