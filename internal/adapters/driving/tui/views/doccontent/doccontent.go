// Package doccontent shows the stored chunks of one document.
package doccontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// chromeHeight is the title, rule, position line and help footer.
const chromeHeight = 6

var errNoService = errors.New("document service not available")

// View pages through the chunks of the selected document.
type View struct {
	styles   *styles.Styles
	docs     driving.DocumentService
	ctx      context.Context
	document *domain.DocumentRecord

	chunks  []domain.VectorRecord
	lines   []string
	pager   viewport.Model
	width   int
	loading bool
	err     error
}

func NewView(s *styles.Styles, docs driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles: s,
		docs:   docs,
		ctx:    context.Background(),
		pager:  viewport.New(80, 24-chromeHeight),
		width:  80,
	}
}

func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

func (v *View) Init() tea.Cmd { return nil }

// SetDocument resets the view to doc and returns the command loading its chunks.
func (v *View) SetDocument(doc *domain.DocumentRecord) tea.Cmd {
	v.document, v.chunks, v.err, v.loading = doc, nil, nil, true
	v.relayout()

	docs, ctx := v.docs, v.ctx
	return func() tea.Msg {
		if doc == nil || docs == nil {
			return messages.DocumentChunksLoaded{Err: errNoService}
		}
		chunks, err := docs.Chunks(ctx, doc.Name)
		return messages.DocumentChunksLoaded{Path: doc.Name, Chunks: chunks, Err: err}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg.String())
	case messages.DocumentChunksLoaded:
		v.loading, v.err = false, msg.Err
		if msg.Err == nil {
			v.chunks = msg.Chunks
			v.relayout()
		}
	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(k string) tea.Cmd {
	p := &v.pager
	switch k {
	case "up", "k":
		p.SetYOffset(p.YOffset - 1)
	case "down", "j":
		p.SetYOffset(p.YOffset + 1)
	case "pgup", "ctrl+u":
		p.SetYOffset(p.YOffset - p.Height)
	case "pgdown", "ctrl+d":
		p.SetYOffset(p.YOffset + p.Height)
	case "home", "g":
		p.GotoTop()
	case "end", "G":
		p.GotoBottom()
	case "esc":
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewDocuments} }
	}
	return nil
}

// relayout renders every chunk under a header line, wrapped to the view
// width, and hands the result to the pager.
func (v *View) relayout() {
	v.lines = v.lines[:0]
	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	for i, c := range v.chunks {
		if i > 0 {
			v.lines = append(v.lines, "")
		}
		header := fmt.Sprintf("── chunk %d/%d · %s · %s", i+1, len(v.chunks), c.Meta.ContentType, c.ID)
		v.lines = append(v.lines, v.styles.Subtitle.Render(header))
		if c.Meta.ContentURL != "" {
			v.lines = append(v.lines, v.styles.Muted.Render("asset: "+c.Meta.ContentURL))
		}
		v.lines = append(v.lines, strings.Split(wrap.Render(c.Content), "\n")...)
	}
	v.pager.SetContent(strings.Join(v.lines, "\n"))
	v.pager.GotoTop()
}

func (v *View) View() string {
	title := "Document"
	if v.document != nil {
		title = v.document.Name
	}
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(title) + "\n")
	b.WriteString(strings.Repeat("─", max(min(v.width-4, 60), 0)) + "\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading chunks..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.lines) == 0:
		b.WriteString(v.styles.Muted.Render("(No chunks stored)"))
	default:
		b.WriteString(v.pager.View())
		if total := len(v.lines); total > v.pager.Height {
			first := v.pager.YOffset + 1
			last := min(v.pager.YOffset+v.pager.Height, total)
			b.WriteString("\n" + v.styles.Muted.Render(fmt.Sprintf("  [%.0f%%] Line %d-%d of %d",
				v.pager.ScrollPercent()*100, first, last, total)))
		}
	}

	b.WriteString("\n\n" + v.styles.Help.Render("[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"))
	return b.String()
}

// SetDimensions resizes the pager and rewraps the chunks.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.pager.Width = width
	v.pager.Height = max(height-chromeHeight, 1)
	v.relayout()
}

func (v *View) Document() *domain.DocumentRecord { return v.document }

func (v *View) Chunks() []domain.VectorRecord { return v.chunks }

func (v *View) Err() error { return v.err }
