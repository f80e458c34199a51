package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps file extensions to parsers.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]driven.Parser
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[string]driven.Parser),
	}
}

// Register adds parser for each of its extensions. A later registration
// for the same extension replaces the earlier one.
func (r *Registry) Register(parser driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range parser.Extensions() {
		r.parsers[normaliseExt(ext)] = parser
	}
}

// Parse parses path with the parser registered for its extension.
func (r *Registry) Parse(ctx context.Context, path string) (*domain.ParsedDocument, error) {
	ext := Extension(path)

	r.mu.RLock()
	parser, ok := r.parsers[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFile, ext)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := parser.Parse(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc.Path == "" {
		doc.Path = path
	}
	return doc, nil
}

// SupportedExtensions returns all registered extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extension returns the lower-case extension of path without the dot.
func Extension(path string) string {
	return normaliseExt(filepath.Ext(path))
}

func normaliseExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
