// Package pdf parses PDF files into per-page paragraph blocks.
//
// Text is extracted with ledongthuc/pdf, which is pure Go. Scanned pages
// without a text layer yield no blocks.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles PDF documents.
type Parser struct{}

// New creates a new PDF parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{"pdf"}
}

// Parse extracts the text layer page by page. Pages that fail to decode
// are skipped; a file that cannot be opened is an error.
func (p *Parser) Parse(ctx context.Context, path string) (doc *domain.ParsedDocument, err error) {
	// the decoder panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	doc = &domain.ParsedDocument{Path: path}
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		doc.Blocks = append(doc.Blocks, parsers.TextBlocks(parsers.Paragraphs(strings.TrimSpace(text)), i-1)...)
	}

	return doc, nil
}
