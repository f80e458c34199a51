package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// Ensure Ingestor implements the interface.
var _ driving.IngestionService = (*Ingestor)(nil)

// Ingestor keeps the vector store and metadata store in step with source files.
// It is not safe for concurrent use on the same file; the WatchQueue
// serialises all calls through one worker.
type Ingestor struct {
	metadata  driven.MetadataStore
	vectors   driven.VectorStore
	embedder  driven.EmbeddingModel
	parsers   driven.ParserRegistry
	pipeline  driven.PostProcessorPipeline
	assets    driven.AssetStore
	admission *Admission
	detector  *ChangeDetector

	readFile func(name string) ([]byte, error)
	now      func() time.Time
}

// NewIngestor creates an ingestion controller.
// The asset store may be nil when no parser produces image blocks.
func NewIngestor(
	metadata driven.MetadataStore,
	vectors driven.VectorStore,
	embedder driven.EmbeddingModel,
	parsers driven.ParserRegistry,
	pipeline driven.PostProcessorPipeline,
	assets driven.AssetStore,
	admission *Admission,
) *Ingestor {
	return &Ingestor{
		metadata:  metadata,
		vectors:   vectors,
		embedder:  embedder,
		parsers:   parsers,
		pipeline:  pipeline,
		assets:    assets,
		admission: admission,
		detector:  NewChangeDetector(),
		readFile:  os.ReadFile,
		now:       time.Now,
	}
}

// Ignore reports whether path is never ingested or retracted.
func (s *Ingestor) Ignore(path string) bool {
	return s.admission.Ignore(path)
}

// Ingest (re)processes the file at path and returns the stored chunk IDs.
// Returns nil, nil when the file is ignored, empty or unchanged. When the
// vectors are stored but the document record cannot be written, the IDs
// are returned together with an error wrapping domain.ErrMetadataStale.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *Ingestor) Ingest(ctx context.Context, path string) ([]string, error) {
	name := DocumentName(path)
	if s.Ignore(name) {
		logger.Debug("ingest: ignoring %s", name)
		return nil, nil
	}

	// 1. Read file bytes
	content, err := s.readFile(name)
	if err != nil {
		logger.Warn("ingest: read %s: %v", name, err)
		return nil, fmt.Errorf("read file: %w", err)
	}

	// 2. Change detection gate
	record, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}
	if !s.detector.ShouldReprocess(content, record) {
		logger.Debug("ingest: %s empty or unchanged, skipping", name)
		return nil, nil
	}
	hash := s.detector.Fingerprint(content)

	// 3. Retract the previous version before inserting anything new
	if record != nil {
		logger.Debug("ingest: %s changed, retracting %d chunks", name, len(record.ChunkIDs))
		if err := s.retract(ctx, record); err != nil {
			return nil, fmt.Errorf("retract previous version: %w", err)
		}
	}

	// 4. Parse and chunk
	doc, err := s.parsers.Parse(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	doc.Path = name
	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}
	chunks = uniqueChunks(chunks)

	// 5. Embed and store, retrying the failures once as a batch
	stored := make([]bool, len(chunks))
	saved := make(map[string]string)
	var failed []int
	for i := range chunks {
		if err := s.storeChunk(ctx, &chunks[i], saved); err != nil {
			logger.Debug("ingest: chunk %s of %s failed: %v", chunks[i].ID, name, err)
			failed = append(failed, i)
			continue
		}
		stored[i] = true
	}
	if len(failed) > 0 {
		logger.Debug("ingest: retrying %d chunks of %s", len(failed), name)
		for _, i := range failed {
			if err := s.storeChunk(ctx, &chunks[i], saved); err != nil {
				logger.Warn("ingest: dropping chunk %s of %s: %v", chunks[i].ID, name, err)
				s.discardAsset(ctx, saved[chunks[i].ID])
				continue
			}
			stored[i] = true
		}
	}

	ids := make([]string, 0, len(chunks))
	for i := range chunks {
		if stored[i] {
			ids = append(ids, chunks[i].ID)
		}
	}

	// 6. Persist the document record, retrying once
	rec := &domain.DocumentRecord{
		Name:        name,
		ChunkIDs:    ids,
		CreatedAt:   s.now(),
		ContentHash: hash,
	}
	if _, err := s.metadata.Upsert(ctx, rec); err != nil {
		logger.Debug("ingest: upsert record for %s failed, retrying: %v", name, err)
		if _, err := s.metadata.Upsert(ctx, rec); err != nil {
			logger.Warn("ingest: record for %s not persisted: %v", name, err)
			return ids, fmt.Errorf("%w: %s: %w", domain.ErrMetadataStale, name, err)
		}
	}

	logger.Info("ingest: %s: %d of %d chunks stored", filepath.Base(name), len(ids), len(chunks))
	return ids, nil
}

// Retract removes the file's chunks, assets and record.
// A path with no record, or an ignored path, is a no-op.
func (s *Ingestor) Retract(ctx context.Context, path string) error {
	name := DocumentName(path)
	if s.Ignore(name) {
		logger.Debug("retract: ignoring %s", name)
		return nil
	}

	record, err := s.lookup(ctx, name)
	if err != nil {
		return err
	}
	if record == nil {
		logger.Debug("retract: no record for %s", name)
		return nil
	}

	return s.retract(ctx, record)
}

// retract deletes asset side-files and vectors while the chunk IDs are
// still known, then the record itself. Chunk IDs shared with another
// document are kept and handed over to that document.
func (s *Ingestor) retract(ctx context.Context, record *domain.DocumentRecord) error {
	owned := record.ChunkIDs
	if len(owned) > 0 {
		shared, err := s.metadata.SharedChunkIDs(ctx, record.Name, owned)
		if err != nil {
			return fmt.Errorf("find shared chunks: %w", err)
		}
		if len(shared) > 0 {
			if err := s.rehome(ctx, record.Name, shared); err != nil {
				return fmt.Errorf("rehome shared chunks: %w", err)
			}
			owned = slices.DeleteFunc(slices.Clone(owned), func(id string) bool {
				_, keep := shared[id]
				return keep
			})
		}
	}

	if len(owned) > 0 {
		// 1. Remove side-files referenced by the chunks
		records, err := s.vectors.Get(ctx, owned)
		if err != nil {
			return fmt.Errorf("get vectors: %w", err)
		}
		for i := range records {
			if url := records[i].Meta.ContentURL; url != "" && s.assets != nil {
				if err := s.assets.Remove(ctx, url); err != nil {
					logger.Warn("retract: remove asset %s: %v", url, err)
				}
			}
		}

		// 2. Bulk-delete the vectors
		n, err := s.vectors.Delete(ctx, owned)
		if err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
		logger.Debug("retract: %s: deleted %d vectors", record.Name, n)
	}

	// 3. Delete the record
	if _, err := s.metadata.Delete(ctx, record.Name); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}

	logger.Info("retract: %s", filepath.Base(record.Name))
	return nil
}

// rehome rewrites the file name of kept vectors that still cite name, so
// retrieval never attributes them to a retracted document.
func (s *Ingestor) rehome(ctx context.Context, name string, owners map[string]string) error {
	records, err := s.vectors.Get(ctx, slices.Sorted(maps.Keys(owners)))
	if err != nil {
		return err
	}
	for i := range records {
		rec := &records[i]
		if rec.Meta.FileName != name {
			continue
		}
		rec.Meta.FileName = owners[rec.ID]
		if _, err := s.vectors.Insert(ctx, rec); err != nil {
			return err
		}
		logger.Debug("retract: chunk %s now cites %s", rec.ID, rec.Meta.FileName)
	}
	return nil
}

// lookup returns the record for name, or nil when there is none.
func (s *Ingestor) lookup(ctx context.Context, name string) (*domain.DocumentRecord, error) {
	record, err := s.metadata.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// storeChunk persists an image chunk's asset, embeds the display text and
// inserts the vector record. Saved asset URLs are recorded in saved by chunk ID.
func (s *Ingestor) storeChunk(ctx context.Context, c *domain.Chunk, saved map[string]string) error {
	if c.ContentType == domain.ContentTypeImage && s.assets != nil && saved[c.ID] == "" {
		url, err := s.assets.Save(ctx, c.ID+filepath.Ext(c.ContentURL), c.Content)
		if err != nil {
			return fmt.Errorf("save asset: %w", err)
		}
		saved[c.ID] = url
		c.ContentURL = url
	}

	embedding, err := s.embedder.Encode(ctx, c.DisplayText())
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	record := &domain.VectorRecord{
		ID:      c.ID,
		Content: c.DisplayText(),
		Meta: domain.VectorMeta{
			FileName:     c.FileName,
			ContentType:  c.ContentType,
			ContentURL:   c.ContentURL,
			TableContent: c.TableContent,
		},
		Embedding: embedding,
	}
	if c.ContentType != domain.ContentTypeImage || s.assets == nil {
		record.Meta.ContentURL = ""
	}

	if _, err := s.vectors.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// discardAsset removes an asset saved for a chunk that was then dropped.
func (s *Ingestor) discardAsset(ctx context.Context, url string) {
	if url == "" || s.assets == nil {
		return
	}
	if err := s.assets.Remove(ctx, url); err != nil {
		logger.Debug("ingest: remove asset %s: %v", url, err)
	}
}

// uniqueChunks drops repeated chunk IDs, keeping the first occurrence.
func uniqueChunks(chunks []domain.Chunk) []domain.Chunk {
	seen := make(map[string]bool, len(chunks))
	out := chunks[:0]
	for _, c := range chunks {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
