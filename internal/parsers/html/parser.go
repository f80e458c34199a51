package html

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles HTML documents.
type Parser struct{}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{"html", "htm", "xhtml"}
}

// Parse walks the document body in order.
func (p *Parser) Parse(_ context.Context, path string) (*domain.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html %s: %w", path, err)
	}

	w := &walker{dir: filepath.Dir(path)}
	w.container(root)
	w.flush()

	if !hasText(w.blocks) {
		w.blocks = append(w.blocks, fallback(data, path)...)
	}

	return &domain.ParsedDocument{Path: path, Blocks: w.blocks}, nil
}

// fallback extracts readable text when the structural walk found none.
func fallback(data []byte, path string) []domain.ContentBlock {
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return parsers.TextBlocks(parsers.Paragraphs(article.TextContent), 0)
	}
	return parsers.TextBlocks(strings.Split(stripHTML(string(data)), "\n"), 0)
}

func hasText(blocks []domain.ContentBlock) bool {
	for _, b := range blocks {
		if b.Type == domain.BlockTypeText && strings.TrimSpace(b.Text) != "" {
			return true
		}
	}
	return false
}

// skipped elements contribute nothing.
var skipped = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Svg: true, atom.Template: true, atom.Iframe: true, atom.Nav: true,
	atom.Form: true, atom.Button: true, atom.Select: true,
}

// inline elements are folded into the surrounding text run.
var inline = map[atom.Atom]bool{
	atom.A: true, atom.Abbr: true, atom.B: true, atom.Bdi: true, atom.Cite: true,
	atom.Code: true, atom.Del: true, atom.Dfn: true, atom.Em: true, atom.I: true,
	atom.Ins: true, atom.Kbd: true, atom.Label: true, atom.Mark: true, atom.Q: true,
	atom.S: true, atom.Samp: true, atom.Small: true, atom.Span: true, atom.Strong: true,
	atom.Sub: true, atom.Sup: true, atom.Time: true, atom.U: true, atom.Var: true,
}

// leaf elements become one text block each.
var leaf = map[atom.Atom]bool{
	atom.P: true, atom.Li: true, atom.Dt: true, atom.Dd: true,
	atom.Blockquote: true, atom.Figcaption: true, atom.Caption: true,
}

var headings = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

type walker struct {
	dir    string
	blocks []domain.ContentBlock
	run    strings.Builder
}

// container visits the children of n, accumulating inline text until a
// block-level child closes the run.
func (w *walker) container(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			w.run.WriteString(c.Data)
		case html.ElementNode:
			w.element(c)
		case html.DocumentNode:
			w.container(c)
		}
	}
}

//nolint:gocyclo // Element dispatch over the block-level tags in use
func (w *walker) element(n *html.Node) {
	switch {
	case skipped[n.DataAtom]:
		return

	case n.DataAtom == atom.Br:
		w.run.WriteByte('\n')

	case inline[n.DataAtom] && !containsBlock(n):
		w.run.WriteString(textContent(n))
		w.collectImages(n)

	case n.DataAtom == atom.Img:
		w.flush()
		w.addImage(n, nil)

	case headings[n.DataAtom] > 0:
		w.flush()
		w.addText(textContent(n), headings[n.DataAtom])

	case n.DataAtom == atom.Pre:
		w.flush()
		if text := strings.Trim(textContent(n), "\n"); strings.TrimSpace(text) != "" {
			w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: text})
		}

	case n.DataAtom == atom.Table:
		w.flush()
		w.addTable(n)

	case n.DataAtom == atom.Figure:
		w.flush()
		w.addFigure(n)

	case leaf[n.DataAtom] && !containsBlock(n):
		w.flush()
		w.addText(textContent(n), 0)
		w.collectImages(n)

	default:
		w.flush()
		w.container(n)
		w.flush()
	}
}

// flush emits the pending inline run as a text block.
func (w *walker) flush() {
	text := w.run.String()
	w.run.Reset()
	w.addText(text, 0)
}

func (w *walker) addText(text string, level int) {
	text = collapse(text)
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: text, TextLevel: level})
}

func (w *walker) collectImages(n *html.Node) {
	for _, img := range findAll(n, atom.Img) {
		w.addImage(img, nil)
	}
}

// addImage emits a local image. Remote and inline data sources are skipped.
func (w *walker) addImage(img *html.Node, captions []string) {
	src := attr(img, "src")
	if src == "" || strings.Contains(src, "://") || strings.HasPrefix(src, "data:") || strings.HasPrefix(src, "//") {
		return
	}
	if u, err := url.Parse(src); err == nil {
		src = u.Path
	}
	path := filepath.FromSlash(src)
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return
	}

	block := domain.ContentBlock{Type: domain.BlockTypeImage, ImagePath: path, ImageData: data}
	if alt := collapse(attr(img, "alt")); alt != "" {
		block.Captions = append(block.Captions, alt)
	}
	block.Captions = append(block.Captions, captions...)
	if title := collapse(attr(img, "title")); title != "" {
		block.Footnotes = append(block.Footnotes, title)
	}
	w.blocks = append(w.blocks, block)
}

// addFigure emits the figure's images and tables with its figcaption.
func (w *walker) addFigure(n *html.Node) {
	var captions []string
	for _, fc := range findAll(n, atom.Figcaption) {
		if text := collapse(textContent(fc)); text != "" {
			captions = append(captions, text)
		}
	}

	before := len(w.blocks)
	for _, img := range findAll(n, atom.Img) {
		w.addImage(img, captions)
	}
	for _, table := range findAll(n, atom.Table) {
		idx := len(w.blocks)
		w.addTable(table)
		if len(w.blocks) > idx {
			w.blocks[idx].Captions = append(w.blocks[idx].Captions, captions...)
		}
	}
	if len(w.blocks) == before {
		for _, c := range captions {
			w.addText(c, 0)
		}
	}
}

func (w *walker) addTable(n *html.Node) {
	var header []string
	var rows [][]string
	var captions []string

	for _, c := range findAll(n, atom.Caption) {
		if text := collapse(textContent(c)); text != "" {
			captions = append(captions, text)
		}
	}

	for _, tr := range findAll(n, atom.Tr) {
		var cells []string
		allHeader := true
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.DataAtom != atom.Td && c.DataAtom != atom.Th {
				continue
			}
			if c.DataAtom == atom.Td {
				allHeader = false
			}
			cells = append(cells, collapse(textContent(c)))
		}
		if len(cells) == 0 {
			continue
		}
		if allHeader && header == nil && len(rows) == 0 {
			header = cells
			continue
		}
		rows = append(rows, cells)
	}

	body := parsers.RenderTable(header, rows)
	if body == "" {
		return
	}
	w.blocks = append(w.blocks, domain.ContentBlock{Type: domain.BlockTypeTable, TableBody: body, Captions: captions})
}

// containsBlock reports whether n has a block-level descendant.
func containsBlock(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if !inline[c.DataAtom] && c.DataAtom != atom.Br && c.DataAtom != atom.Img && !skipped[c.DataAtom] {
			return true
		}
		if containsBlock(c) {
			return true
		}
	}
	return false
}

// textContent concatenates descendant text, turning <br> into newlines.
func textContent(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch {
			case c.Type == html.TextNode:
				b.WriteString(c.Data)
			case c.Type != html.ElementNode || skipped[c.DataAtom]:
			case c.DataAtom == atom.Br:
				b.WriteByte('\n')
			default:
				visit(c)
			}
		}
	}
	visit(n)
	return b.String()
}

func findAll(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if c.DataAtom == a {
				out = append(out, c)
				if a == atom.Table {
					continue
				}
			}
			visit(c)
		}
	}
	visit(n)
	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapse squeezes whitespace runs within each line and drops blank lines.
func collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
