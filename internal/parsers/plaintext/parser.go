// Package plaintext parses plain text files into paragraph blocks.
package plaintext

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles plain text files. Each blank-line separated paragraph
// becomes one text block.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{"txt", "text", "log"}
}

// Parse reads path as UTF-8 text. Invalid sequences are replaced.
func (p *Parser) Parse(_ context.Context, path string) (*domain.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	text := strings.TrimPrefix(string(data), "\uFEFF")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	return &domain.ParsedDocument{
		Path:   path,
		Blocks: parsers.TextBlocks(parsers.Paragraphs(text), 0),
	}, nil
}
