package parsers

import (
	"html"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// RenderTable renders a header row and body rows as an HTML table.
// Rows may be ragged. Returns "" when there are no cells at all.
func RenderTable(header []string, rows [][]string) string {
	if len(header) == 0 && len(rows) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("<table>")
	if len(header) > 0 {
		writeRow(&b, "th", header)
	}
	for _, row := range rows {
		writeRow(&b, "td", row)
	}
	b.WriteString("</table>")
	return b.String()
}

func writeRow(b *strings.Builder, cell string, values []string) {
	b.WriteString("<tr>")
	for _, v := range values {
		b.WriteString("<" + cell + ">")
		b.WriteString(html.EscapeString(strings.TrimSpace(v)))
		b.WriteString("</" + cell + ">")
	}
	b.WriteString("</tr>")
}

// Paragraphs splits text on blank lines into trimmed, non-empty paragraphs.
// Line endings are normalised and lines inside a paragraph are kept.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	var current []string
	flush := func() {
		if p := strings.TrimSpace(strings.Join(current, "\n")); p != "" {
			out = append(out, p)
		}
		current = current[:0]
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, strings.TrimRight(line, " \t"))
	}
	flush()
	return out
}

// TextBlocks wraps paragraphs as body text blocks on page, skipping blank ones.
func TextBlocks(paragraphs []string, page int) []domain.ContentBlock {
	blocks := make([]domain.ContentBlock, 0, len(paragraphs))
	for _, p := range paragraphs {
		if p = strings.TrimSpace(p); p == "" {
			continue
		}
		blocks = append(blocks, domain.ContentBlock{Type: domain.BlockTypeText, Text: p, PageIndex: page})
	}
	return blocks
}
