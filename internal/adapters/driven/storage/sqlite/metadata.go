package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// ==================== Metadata Store ====================

// metadataStore implements driven.MetadataStore.
type metadataStore struct {
	store *Store
}

var _ driven.MetadataStore = (*metadataStore)(nil)

// Upsert stores or replaces a document record and its chunk list.
func (s *metadataStore) Upsert(ctx context.Context, record *domain.DocumentRecord) (int, error) {
	if record == nil || record.Name == "" {
		return 0, domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, content_hash, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			content_hash = excluded.content_hash,
			created_at = excluded.created_at
	`, record.Name, record.ContentHash, record.CreatedAt.UTC()); err != nil {
		return 0, fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_chunks WHERE document_name = ?", record.Name); err != nil {
		return 0, fmt.Errorf("clearing chunk list: %w", err)
	}

	if len(record.ChunkIDs) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO document_chunks (document_name, chunk_id, position)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return 0, fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i, id := range record.ChunkIDs {
			if _, err := stmt.ExecContext(ctx, record.Name, id, i); err != nil {
				return 0, fmt.Errorf("saving chunk list: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return 1, nil
}

// Get retrieves a document record by name.
func (s *metadataStore) Get(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	rec := domain.DocumentRecord{Name: name}
	row := s.store.db.QueryRowContext(ctx,
		"SELECT content_hash, created_at FROM documents WHERE name = ?", name)
	if err := row.Scan(&rec.ContentHash, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT chunk_id FROM document_chunks
		WHERE document_name = ?
		ORDER BY position
	`, name)
	if err != nil {
		return nil, fmt.Errorf("querying chunk list: %w", err)
	}
	defer rows.Close()

	rec.ChunkIDs = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chunk id: %w", err)
		}
		rec.ChunkIDs = append(rec.ChunkIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk list: %w", err)
	}

	return &rec, nil
}

// Delete removes a document record and its chunk list.
func (s *metadataStore) Delete(ctx context.Context, name string) (int, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_chunks WHERE document_name = ?", name); err != nil {
		return 0, fmt.Errorf("deleting chunk list: %w", err)
	}
	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name)
	if err != nil {
		return 0, fmt.Errorf("deleting document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return int(n), nil
}

// ListAllNames returns every document name, sorted.
func (s *metadataStore) ListAllNames(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, "SELECT name FROM documents ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning document name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return names, nil
}

// SharedChunkIDs maps each of ids that another document also references to
// the first such document by name.
func (s *metadataStore) SharedChunkIDs(ctx context.Context, name string, ids []string) (map[string]string, error) {
	shared := make(map[string]string)
	for batch := range slices.Chunk(ids, maxBatch) {
		args := append([]any{name}, stringArgs(batch)...)
		//nolint:gosec // G202: placeholders only, values are bound
		query := `SELECT chunk_id, MIN(document_name) FROM document_chunks
			WHERE document_name <> ? AND chunk_id IN (` + placeholders(len(batch)) + `)
			GROUP BY chunk_id`
		if err := s.sharedBatch(ctx, query, args, shared); err != nil {
			return nil, err
		}
	}
	return shared, nil
}

func (s *metadataStore) sharedBatch(ctx context.Context, query string, args []any, into map[string]string) error {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("querying shared chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, owner string
		if err := rows.Scan(&id, &owner); err != nil {
			return fmt.Errorf("scanning shared chunk: %w", err)
		}
		into[id] = owner
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating shared chunks: %w", err)
	}
	return nil
}
