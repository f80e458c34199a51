// Package filter drops chunks whose display text is too short to be useful.
package filter

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/logger"
)

// DefaultMinChars is the minimum display text length in characters.
const DefaultMinChars = 8

// DefaultMinWords is the minimum number of whitespace-separated words.
const DefaultMinWords = 3

// Processor removes noise chunks.
// It implements the PostProcessor interface.
type Processor struct {
	minChars int
	minWords int
}

// Option configures the filter processor.
type Option func(*Processor)

// WithMinChars sets the minimum display text length.
func WithMinChars(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minChars = n
		}
	}
}

// WithMinWords sets the minimum word count.
func WithMinWords(n int) Option {
	return func(p *Processor) {
		if n >= 0 {
			p.minWords = n
		}
	}
}

// New creates a filter processor.
func New(opts ...Option) *Processor {
	p := &Processor{
		minChars: DefaultMinChars,
		minWords: DefaultMinWords,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "filter"
}

// Process keeps the chunks that pass Keep, preserving order.
func (p *Processor) Process(_ context.Context, doc *domain.ParsedDocument, chunks []domain.Chunk) ([]domain.Chunk, error) {
	kept := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		if p.Keep(&chunks[i]) {
			kept = append(kept, chunks[i])
			continue
		}
		logger.Debug("filter: dropping %s chunk %s of %s", chunks[i].ContentType, chunks[i].ID, docPath(doc))
	}
	return kept, nil
}

// Keep reports whether the chunk's trimmed display text is long enough.
func (p *Processor) Keep(c *domain.Chunk) bool {
	text := strings.TrimSpace(c.DisplayText())
	if utf8.RuneCountInString(text) < p.minChars {
		return false
	}
	return len(strings.Fields(text)) >= p.minWords
}

func docPath(doc *domain.ParsedDocument) string {
	if doc == nil {
		return ""
	}
	return doc.Path
}
