// Package postgres implements driven.MetadataStore on PostgreSQL.
//
// It lets several machines share one set of document records while each
// keeps its own local vector store. The store accepts an externally-owned
// *pgxpool.Pool via constructor injection; Open is a convenience that
// creates one from a DSN.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

var _ driven.MetadataStore = (*MetadataStore)(nil)

// MetadataStore keeps one row per document, with the ordered chunk IDs
// held in a text array.
type MetadataStore struct {
	pool  *pgxpool.Pool
	owned bool
}

// New creates a MetadataStore using an existing pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *MetadataStore {
	return &MetadataStore{pool: pool}
}

// Open connects to dsn and initialises the schema. Close releases the pool.
func Open(ctx context.Context, dsn string) (*MetadataStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	s := &MetadataStore{pool: pool, owned: true}
	if err := s.Init(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool if Open created it.
func (s *MetadataStore) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}

// Init creates the documents table. Safe to call multiple times.
func (s *MetadataStore) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tinyrag_documents (
			name TEXT PRIMARY KEY,
			chunk_ids TEXT[] NOT NULL DEFAULT '{}',
			content_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS tinyrag_documents_chunk_ids_idx
			ON tinyrag_documents USING gin (chunk_ids)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	return nil
}

// Upsert inserts or replaces the record keyed by its name.
func (s *MetadataStore) Upsert(ctx context.Context, record *domain.DocumentRecord) (int, error) {
	if record == nil || record.Name == "" {
		return 0, domain.ErrInvalidInput
	}
	ids := record.ChunkIDs
	if ids == nil {
		ids = []string{}
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO tinyrag_documents (name, chunk_ids, content_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET
		   chunk_ids = EXCLUDED.chunk_ids,
		   content_hash = EXCLUDED.content_hash,
		   created_at = EXCLUDED.created_at`,
		record.Name, ids, record.ContentHash, record.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("postgres: upsert document: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Get returns the record for name, or domain.ErrNotFound.
func (s *MetadataStore) Get(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	rec := domain.DocumentRecord{Name: name}
	err := s.pool.QueryRow(ctx,
		`SELECT chunk_ids, content_hash, created_at FROM tinyrag_documents WHERE name = $1`,
		name).Scan(&rec.ChunkIDs, &rec.ContentHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get document: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for name.
func (s *MetadataStore) Delete(ctx context.Context, name string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tinyrag_documents WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete document: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListAllNames returns every record name, sorted.
func (s *MetadataStore) ListAllNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT name FROM tinyrag_documents ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("postgres: scan document names: %w", err)
	}
	return names, nil
}

// SharedChunkIDs maps each of ids that another record also references to
// the first such record by name.
func (s *MetadataStore) SharedChunkIDs(ctx context.Context, name string, ids []string) (map[string]string, error) {
	shared := make(map[string]string)
	if len(ids) == 0 {
		return shared, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, MIN(name)
		 FROM tinyrag_documents, unnest(chunk_ids) AS id
		 WHERE name <> $1 AND chunk_ids && $2 AND id = ANY($2)
		 GROUP BY id`,
		name, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: shared chunks: %w", err)
	}
	var id, owner string
	if _, err := pgx.ForEachRow(rows, []any{&id, &owner}, func() error {
		shared[id] = owner
		return nil
	}); err != nil {
		return nil, fmt.Errorf("postgres: scan shared chunks: %w", err)
	}
	return shared, nil
}
