// Package docx parses Word documents into heading, text, table and
// image blocks by reading the OOXML parts directly.
package docx

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driven"
	"github.com/custodia-labs/tinyrag/internal/parsers"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

const (
	documentPart = "word/document.xml"
	relsPart     = "word/_rels/document.xml.rels"
)

// Parser handles DOCX documents.
type Parser struct{}

// New creates a new DOCX parser.
func New() *Parser {
	return &Parser{}
}

// Extensions returns the extensions this parser handles.
func (p *Parser) Extensions() []string {
	return []string{"docx"}
}

// Parse reads the document body in order. Paragraphs styled as captions
// attach to the image or table right before them.
func (p *Parser) Parse(ctx context.Context, filePath string) (*domain.ParsedDocument, error) {
	archive, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open docx %s: %w", domain.ErrInvalidInput, filePath, err)
	}
	defer archive.Close()

	files := make(map[string]*zip.File, len(archive.File))
	for _, f := range archive.File {
		files[f.Name] = f
	}

	body, ok := files[documentPart]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s", domain.ErrInvalidInput, filePath, documentPart)
	}

	rels, err := readRelationships(files[relsPart])
	if err != nil {
		return nil, err
	}

	rc, err := body.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	b := &bodyReader{ctx: ctx, files: files, rels: rels}
	if err := b.read(xml.NewDecoder(rc)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}

	return &domain.ParsedDocument{Path: filePath, Blocks: b.blocks}, nil
}

// relationships is the structure of word/_rels/document.xml.rels.
type relationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// readRelationships maps relationship IDs to archive entry names.
func readRelationships(f *zip.File) (map[string]string, error) {
	out := make(map[string]string)
	if f == nil {
		return out, nil
	}

	data, err := readPart(f)
	if err != nil {
		return nil, err
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", relsPart, err)
	}
	for _, r := range rels.Items {
		target := r.Target
		if strings.HasPrefix(target, "/") {
			target = strings.TrimPrefix(target, "/")
		} else {
			target = path.Join("word", target)
		}
		out[r.ID] = target
	}
	return out, nil
}

func readPart(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

// bodyReader walks document.xml tokens and collects blocks.
type bodyReader struct {
	ctx    context.Context
	files  map[string]*zip.File
	rels   map[string]string
	blocks []domain.ContentBlock

	para   strings.Builder
	style  string
	images []string

	tableDepth int
	rows       [][]string
	row        []string
	cell       strings.Builder
}

//nolint:gocyclo // Token switch over the WordprocessingML elements in use
func (b *bodyReader) read(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				b.para.Reset()
				b.style = ""
				b.images = b.images[:0]
			case "pStyle":
				b.style = attr(el, "val")
			case "t":
				var t struct {
					Text string `xml:",chardata"`
				}
				if err := dec.DecodeElement(&t, &el); err != nil {
					return err
				}
				b.para.WriteString(t.Text)
			case "tab":
				b.para.WriteByte('\t')
			case "br", "cr":
				b.para.WriteByte('\n')
			case "blip":
				if id := attr(el, "embed"); id != "" {
					b.images = append(b.images, id)
				}
			case "tbl":
				b.tableDepth++
				if b.tableDepth == 1 {
					b.rows = nil
				}
			case "tr":
				if b.tableDepth == 1 {
					b.row = nil
				}
			case "tc":
				if b.tableDepth == 1 {
					b.cell.Reset()
				}
			}

		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				if err := b.ctx.Err(); err != nil {
					return err
				}
				b.endParagraph()
			case "tc":
				if b.tableDepth == 1 {
					b.row = append(b.row, b.cell.String())
				}
			case "tr":
				if b.tableDepth == 1 {
					b.rows = append(b.rows, b.row)
				}
			case "tbl":
				if b.tableDepth == 1 {
					b.endTable()
				}
				b.tableDepth--
			}
		}
	}
}

func (b *bodyReader) endParagraph() {
	text := strings.TrimSpace(b.para.String())

	if b.tableDepth > 0 {
		if text != "" {
			if b.cell.Len() > 0 {
				b.cell.WriteByte('\n')
			}
			b.cell.WriteString(text)
		}
	} else if text != "" && !(isCaption(b.style) && b.attachCaption(text)) {
		b.blocks = append(b.blocks, domain.ContentBlock{
			Type:      domain.BlockTypeText,
			Text:      text,
			TextLevel: headingLevel(b.style),
		})
	}

	for _, id := range b.images {
		b.addImage(id)
	}
}

func (b *bodyReader) endTable() {
	if len(b.rows) == 0 {
		return
	}
	body := parsers.RenderTable(b.rows[0], b.rows[1:])
	if body == "" {
		return
	}
	b.blocks = append(b.blocks, domain.ContentBlock{Type: domain.BlockTypeTable, TableBody: body})
}

func (b *bodyReader) addImage(relID string) {
	name, ok := b.rels[relID]
	if !ok {
		return
	}
	f, ok := b.files[name]
	if !ok {
		return
	}
	data, err := readPart(f)
	if err != nil || len(data) == 0 {
		return
	}
	b.blocks = append(b.blocks, domain.ContentBlock{Type: domain.BlockTypeImage, ImagePath: name, ImageData: data})
}

// attachCaption adds text to the captions of the last block if it is a
// figure or table.
func (b *bodyReader) attachCaption(text string) bool {
	if len(b.blocks) == 0 {
		return false
	}
	last := &b.blocks[len(b.blocks)-1]
	if last.Type != domain.BlockTypeImage && last.Type != domain.BlockTypeTable {
		return false
	}
	last.Captions = append(last.Captions, text)
	return true
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func isCaption(style string) bool {
	return strings.EqualFold(style, "Caption")
}

// headingLevel maps built-in heading style IDs to levels. Body text is 0.
func headingLevel(style string) int {
	switch {
	case strings.EqualFold(style, "Title"):
		return 1
	case strings.EqualFold(style, "Subtitle"):
		return 2
	}
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if rest, ok := strings.CutPrefix(lower, "heading"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
