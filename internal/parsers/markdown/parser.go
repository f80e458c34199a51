// Package markdown parses Markdown files into heading, text, code,
// equation, table and image blocks.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles Markdown documents with GFM tables.
type Parser struct {
	md goldmark.Markdown
}

// New creates a new Markdown parser.
func New() *Parser {
	return &Parser{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{"md", "markdown"}
}

// Parse reads path and walks its Markdown tree in document order.
// Local images are read relative to the file; remote images are skipped.
func (p *Parser) Parse(_ context.Context, path string) (*domain.ParsedDocument, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	w := &walker{source: source, dir: filepath.Dir(path)}
	root := p.md.Parser().Parse(text.NewReader(source))
	if err := ast.Walk(root, w.visit); err != nil {
		return nil, fmt.Errorf("walk %s: %w", path, err)
	}

	return &domain.ParsedDocument{Path: path, Blocks: w.blocks}, nil
}

type walker struct {
	source []byte
	dir    string
	blocks []domain.ContentBlock
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	switch n := n.(type) {
	case *ast.Heading:
		w.addText(inlineText(n, w.source, nil), n.Level)
		return ast.WalkSkipChildren, nil

	case *ast.Paragraph, *ast.TextBlock:
		var images []*ast.Image
		body := inlineText(n, w.source, &images)
		if eq, ok := equation(body); ok {
			w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeEquation, Text: eq})
		} else {
			w.addText(body, 0)
		}
		for _, img := range images {
			w.addImage(img)
		}
		return ast.WalkSkipChildren, nil

	case *ast.FencedCodeBlock:
		w.addText(lines(n, w.source), 0)
		return ast.WalkSkipChildren, nil

	case *ast.CodeBlock:
		w.addText(lines(n, w.source), 0)
		return ast.WalkSkipChildren, nil

	case *extast.Table:
		w.addTable(n)
		return ast.WalkSkipChildren, nil

	case *ast.HTMLBlock:
		return ast.WalkSkipChildren, nil
	}

	return ast.WalkContinue, nil
}

func (w *walker) addText(s string, level int) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: s, TextLevel: level})
}

func (w *walker) addImage(img *ast.Image) {
	dest := string(img.Destination)
	if dest == "" || strings.Contains(dest, "://") || strings.HasPrefix(dest, "data:") {
		return
	}
	path := dest
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.dir, filepath.FromSlash(dest))
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return
	}

	block := domain.ContentBlock{Type: domain.BlockTypeImage, ImagePath: path, ImageData: data}
	if alt := strings.TrimSpace(inlineText(img, w.source, nil)); alt != "" {
		block.Captions = append(block.Captions, alt)
	}
	if title := strings.TrimSpace(string(img.Title)); title != "" {
		block.Footnotes = append(block.Footnotes, title)
	}
	w.blocks = append(w.blocks, block)
}

func (w *walker) addTable(table *extast.Table) {
	var header []string
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, inlineText(cell, w.source, nil))
		}
		if _, ok := row.(*extast.TableHeader); ok {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}
	if body := parsers.RenderTable(header, rows); body != "" {
		w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeTable, TableBody: body})
	}
}

// inlineText flattens the inline children of n. Images are collected
// into images when it is non-nil and contribute no text.
func inlineText(n ast.Node, source []byte, images *[]*ast.Image) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c == n {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.HardLineBreak() {
				b.WriteByte('\n')
			} else if c.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.AutoLink:
			b.Write(c.URL(source))
			return ast.WalkSkipChildren, nil
		case *ast.Image:
			if images != nil {
				*images = append(*images, c)
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

// lines joins the raw lines of a code block.
func lines(n ast.Node, source []byte) string {
	var b bytes.Buffer
	segments := n.Lines()
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// equation recognises a paragraph written as $$ ... $$.
func equation(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 5 || !strings.HasPrefix(s, "$$") || !strings.HasSuffix(s, "$$") {
		return "", false
	}
	inner := strings.TrimSpace(s[2 : len(s)-2])
	return inner, inner != ""
}
