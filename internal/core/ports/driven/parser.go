package driven

import (
	"context"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// Parser turns a file into content blocks in reading order.
// Each parser handles a fixed set of file extensions.
type Parser interface {
	// Extensions returns the lower-case extensions handled, without dots.
	Extensions() []string

	// Parse reads and parses the file at path.
	// Any error is a file-level failure; no partial output is used.
	Parse(ctx context.Context, path string) (*domain.ParsedDocument, error)
}

// ParserRegistry selects a parser by file extension.
type ParserRegistry interface {
	// Parse parses path with the parser registered for its extension.
	// Returns domain.ErrUnsupportedFile when none is registered.
	Parse(ctx context.Context, path string) (*domain.ParsedDocument, error)

	// Register adds a parser for all of its extensions.
	Register(parser Parser)

	// SupportedExtensions returns all registered extensions, sorted.
	SupportedExtensions() []string
}
