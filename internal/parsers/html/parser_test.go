package html

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

const page = `<!DOCTYPE html>
<html><head><title>Handbook</title><style>p { color: red }</style></head>
<body>
<nav><a href="/">Home</a></nav>
<h1>Employee   Handbook</h1>
<p>Welcome to <strong>Acme</strong>.<br>Read carefully.</p>
<script>track()</script>
<ul><li>Holidays</li><li><p>Benefits</p></li></ul>
<table>
  <caption>Leave days</caption>
  <tr><th>Type</th><th>Days</th></tr>
  <tr><td>Annual</td><td>25</td></tr>
</table>
<figure><img src="img/org.png" alt="Org chart"><figcaption>Figure 2</figcaption></figure>
<p><img src="https://cdn.example.com/x.png" alt="remote"></p>
<pre>line 1
  line 2</pre>
</body></html>`

func parsePage(t *testing.T, content string) *domain.ParsedDocument {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "org.png"), []byte("PNG"), 0600))
	path := filepath.Join(dir, "handbook.html")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	doc, err := New().Parse(context.Background(), path)
	require.NoError(t, err)
	return doc
}

func TestParser_Parse(t *testing.T) {
	doc := parsePage(t, page)

	require.Len(t, doc.Blocks, 7)
	assert.Equal(t, domain.ContentBlock{Type: domain.BlockTypeText, Text: "Employee Handbook", TextLevel: 1}, doc.Blocks[0])
	assert.Equal(t, "Welcome to Acme.\nRead carefully.", doc.Blocks[1].Text)
	assert.Equal(t, "Holidays", doc.Blocks[2].Text)
	assert.Equal(t, "Benefits", doc.Blocks[3].Text)

	table := doc.Blocks[4]
	assert.Equal(t, domain.BlockTypeTable, table.Type)
	assert.Equal(t, "<table><tr><th>Type</th><th>Days</th></tr><tr><td>Annual</td><td>25</td></tr></table>", table.TableBody)
	assert.Equal(t, []string{"Leave days"}, table.Captions)

	img := doc.Blocks[5]
	assert.Equal(t, domain.BlockTypeImage, img.Type)
	assert.Equal(t, []byte("PNG"), img.ImageData)
	assert.Equal(t, []string{"Org chart", "Figure 2"}, img.Captions)

	assert.Equal(t, "line 1\n  line 2", doc.Blocks[6].Text)
}

func TestParser_Parse_FallsBackWhenNoStructure(t *testing.T) {
	doc := parsePage(t, "<html><body><nav>Only navigation</nav></body></html>")

	// nothing readable survives the walk, so a fallback extractor runs
	for _, b := range doc.Blocks {
		assert.Equal(t, domain.BlockTypeText, b.Type)
	}
}

func TestParser_Parse_Missing(t *testing.T) {
	_, err := New().Parse(context.Background(), filepath.Join(t.TempDir(), "none.html"))

	assert.Error(t, err)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "nested tags", input: "<div><p><strong>Bold</strong> text</p></div>", expected: "Bold text"},
		{name: "script removed", input: "<p>Before</p><script>alert('evil');</script><p>After</p>", expected: "Before\nAfter"},
		{name: "head removed", input: "<head><title>Title</title></head><body>Content</body>", expected: "Content"},
		{name: "br to newline", input: "Line 1<br>Line 2<br/>Line 3", expected: "Line 1\nLine 2\nLine 3"},
		{name: "entities decoded", input: "<p>&lt;tag&gt; &amp; &quot;quotes&quot;</p>", expected: "<tag> & \"quotes\""},
		{name: "comments removed", input: "<p>Before</p><!-- comment --><p>After</p>", expected: "Before\nAfter"},
		{name: "svg removed", input: `<p>Before</p><svg width="100"><circle cx="50"/></svg><p>After</p>`, expected: "Before\nAfter"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stripHTML(tc.input))
		})
	}
}

func TestCollapse(t *testing.T) {
	assert.Equal(t, "a b\nc", collapse("  a \t b \n\n   \n c "))
}
