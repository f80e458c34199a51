package html

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// breaks end the current line when opened or closed.
var breaks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true, atom.Li: true,
	atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.H1: true, atom.H2: true,
	atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
}

// hiddenTags drop their whole subtree.
var hiddenTags = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Svg: true, atom.Template: true,
}

// stripHTML tokenizes content without building a tree and returns one line
// per block element. It tolerates markup that html.Parse would restructure.
func stripHTML(content string) string {
	z := html.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	hidden := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return collapse(b.String())

		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}

		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			if hiddenTags[a] {
				switch tt {
				case html.StartTagToken:
					hidden++
				case html.EndTagToken:
					hidden = max(hidden-1, 0)
				}
				continue
			}
			if hidden == 0 && breaks[a] {
				b.WriteByte('\n')
			}
		}
	}
}
