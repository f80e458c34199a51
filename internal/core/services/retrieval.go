package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// Ensure RetrievalAssembler implements the interface.
var _ driving.RetrievalService = (*RetrievalAssembler)(nil)

// RetrievalAssembler turns a conversation into a cited knowledge context.
// It only reads the stores and is safe for concurrent use.
type RetrievalAssembler struct {
	embedder driven.EmbeddingModel
	vectors  driven.VectorStore
	settings domain.RetrievalSettings
}

// NewRetrievalAssembler creates a retrieval assembler. Zero or negative
// settings fall back to the defaults.
func NewRetrievalAssembler(
	embedder driven.EmbeddingModel,
	vectors driven.VectorStore,
	settings domain.RetrievalSettings,
) *RetrievalAssembler {
	defaults := domain.DefaultAppSettings().Retrieval
	if settings.MaxQueries <= 0 {
		settings.MaxQueries = defaults.MaxQueries
	}
	if settings.Limit <= 0 {
		settings.Limit = defaults.Limit
	}
	if settings.SparseWeight < 0 {
		settings.SparseWeight = defaults.SparseWeight
	}
	if settings.DenseWeight < 0 {
		settings.DenseWeight = defaults.DenseWeight
	}
	if settings.SparseWeight == 0 && settings.DenseWeight == 0 {
		settings.SparseWeight = defaults.SparseWeight
		settings.DenseWeight = defaults.DenseWeight
	}
	return &RetrievalAssembler{
		embedder: embedder,
		vectors:  vectors,
		settings: settings,
	}
}

// Assemble searches each of the latest user turns, merges the hits and
// builds the context. A failing query is skipped; an error is returned
// only when every query fails.
func (s *RetrievalAssembler) Assemble(ctx context.Context, conversation []domain.ChatMessage) (*domain.KnowledgeContext, error) {
	queries := LatestUserTurns(conversation, s.settings.MaxQueries)

	var (
		hits []domain.VectorHit
		errs []error
	)
	for _, q := range queries {
		found, err := s.search(ctx, q)
		if err != nil {
			logger.Warn("retrieve: query %q: %v", q, err)
			errs = append(errs, err)
			continue
		}
		logger.Debug("retrieve: query %q: %d hits", q, len(found))
		hits = append(hits, found...)
	}

	if len(queries) > 0 && len(errs) == len(queries) {
		return nil, fmt.Errorf("search: %w", errors.Join(errs...))
	}

	return BuildKnowledge(hits), nil
}

func (s *RetrievalAssembler) search(ctx context.Context, query string) ([]domain.VectorHit, error) {
	embedding, err := s.embedder.Encode(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return s.vectors.Search(ctx,
		domain.SearchQuery{Dense: embedding.Dense, Sparse: embedding.Sparse},
		domain.SearchParams{
			Limit:        s.settings.Limit,
			SparseWeight: s.settings.SparseWeight,
			DenseWeight:  s.settings.DenseWeight,
		})
}

// LatestUserTurns returns the content of at most max of the last non-blank
// user messages, in conversation order.
func LatestUserTurns(conversation []domain.ChatMessage, limit int) []string {
	var turns []string
	for i := len(conversation) - 1; i >= 0 && len(turns) < limit; i-- {
		m := conversation[i]
		if m.Role != domain.RoleUser {
			continue
		}
		if q := strings.TrimSpace(m.Content); q != "" {
			turns = append(turns, q)
		}
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns
}

type fileGroup struct {
	name    string
	records []domain.VectorRecord
}

// BuildKnowledge deduplicates hits by chunk ID (first occurrence wins),
// groups them by file in first-seen order and numbers the fragments from 0
// across the whole context.
func BuildKnowledge(hits []domain.VectorHit) *domain.KnowledgeContext {
	seen := make(map[string]bool, len(hits))
	byFile := make(map[string]*fileGroup)
	var groups []*fileGroup

	for _, h := range hits {
		if seen[h.Record.ID] {
			continue
		}
		seen[h.Record.ID] = true

		file := h.Record.Meta.FileName
		g, ok := byFile[file]
		if !ok {
			g = &fileGroup{name: file}
			byFile[file] = g
			groups = append(groups, g)
		}
		g.records = append(g.records, h.Record)
	}

	var b strings.Builder
	refs := make(domain.ReferenceMeta, len(seen))
	index := 0
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Document: %s\nRelevant fragments as following:\n", filepath.Base(g.name))
		for _, r := range g.records {
			fmt.Fprintf(&b, "[ID:%d] %s\n", index, fragmentText(&r))
			refs[index] = domain.ChunkRef{
				ChunkID:     r.ID,
				FileName:    r.Meta.FileName,
				ContentType: r.Meta.ContentType,
				ContentURL:  r.Meta.ContentURL,
			}
			index++
		}
	}

	return &domain.KnowledgeContext{
		Context:    b.String(),
		References: refs,
	}
}

func fragmentText(r *domain.VectorRecord) string {
	switch r.Meta.ContentType {
	case domain.ContentTypeTable:
		if r.Meta.TableContent != "" {
			return r.Content + "\n" + r.Meta.TableContent
		}
	case domain.ContentTypeImage:
		return "Image description: " + r.Content
	}
	return r.Content
}
