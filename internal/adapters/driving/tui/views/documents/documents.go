// Package documents lists the indexed documents.
package documents

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
	"github.com/custodia-labs/tinyrag/internal/core/ports/driving"
)

// ErrNoDocumentService is reported when the view was built without a service.
var ErrNoDocumentService = errors.New("document service not available")

// chromeHeight is the title, position line, help footer and spacing.
const chromeHeight = 8

const helpLine = "[↑/↓] navigate  [enter] show chunks  [r] reload  [esc] back to chat"

// View is a scrolling list with one row per DocumentRecord.
type View struct {
	styles *styles.Styles
	docs   driving.DocumentService
	ctx    context.Context

	documents    []domain.DocumentRecord
	selected     int
	scrollOffset int
	width        int
	height       int
	loading      bool
	err          error
}

func NewView(s *styles.Styles, docs driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{styles: s, docs: docs, ctx: context.Background()}
}

func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init marks the view loading and returns the command fetching the list.
func (v *View) Init() tea.Cmd {
	v.loading, v.err = true, nil
	docs, ctx := v.docs, v.ctx
	return func() tea.Msg {
		if docs == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		list, err := docs.List(ctx)
		return messages.DocumentsLoaded{Documents: list, Err: err}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case tea.KeyMsg:
		return v, v.handleKey(msg.String())
	case messages.DocumentsLoaded:
		v.loading, v.err = false, msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.moveTo(min(v.selected, len(v.documents)-1))
		}
	case messages.ErrorOccurred:
		v.err = msg.Err
	}
	return v, nil
}

func (v *View) handleKey(k string) tea.Cmd {
	switch k {
	case "up", "k":
		v.moveTo(v.selected - 1)
	case "down", "j":
		v.moveTo(v.selected + 1)
	case "enter":
		if doc := v.SelectedDocument(); doc != nil {
			picked := *doc
			return func() tea.Msg { return messages.DocumentSelected{Document: picked} }
		}
	case "esc", "tab":
		return func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} }
	case "r":
		return v.Init()
	}
	return nil
}

// moveTo clamps i to the list and scrolls just enough to keep it visible.
func (v *View) moveTo(i int) {
	v.selected = max(0, min(i, len(v.documents)-1))
	rows := v.rows()
	switch {
	case v.selected < v.scrollOffset:
		v.scrollOffset = v.selected
	case v.selected >= v.scrollOffset+rows:
		v.scrollOffset = v.selected - rows + 1
	}
}

func (v *View) rows() int { return max(v.height-chromeHeight, 1) }

func (v *View) View() string {
	var b strings.Builder
	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Indexed Documents (%d)", len(v.documents))) + "\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents indexed. Run 'tinyrag ingest <path>' to add some."))
	default:
		end := min(v.scrollOffset+v.rows(), len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.row(i) + "\n")
		}
		if len(v.documents) > v.rows() {
			b.WriteString("\n" + v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.documents))))
		}
	}

	b.WriteString("\n\n" + v.styles.Help.Render(helpLine))
	return b.String()
}

// row renders the base name, chunk count, ingestion time and directory of
// document i, truncating the name and directory to fit the width.
func (v *View) row(i int) string {
	doc := &v.documents[i]
	nameWidth := max(v.width/3-4, 10)
	dirWidth := max(v.width/2-4, 10)

	name := filepath.Base(doc.Name)
	if len(name) > nameWidth {
		name = name[:nameWidth-3] + "..."
	}
	dir := filepath.Dir(doc.Name)
	if len(dir) > dirWidth {
		dir = "..." + dir[len(dir)-dirWidth+3:]
	}
	info := fmt.Sprintf("%d chunks, %s", len(doc.ChunkIDs), doc.CreatedAt.Local().Format(time.DateTime))

	if i == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("> %-*s  %s  %s", nameWidth, name, info, dir))
	}
	return v.styles.Normal.Render(fmt.Sprintf("  %-*s  ", nameWidth, name)) + v.styles.Muted.Render(info+"  "+dir)
}

func (v *View) SetDimensions(width, height int) {
	v.width, v.height = width, height
}

func (v *View) Documents() []domain.DocumentRecord { return v.documents }

func (v *View) SelectedIndex() int { return v.selected }

// SelectedDocument returns nil when the list is empty.
func (v *View) SelectedDocument() *domain.DocumentRecord {
	if v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

func (v *View) Loading() bool { return v.loading }

func (v *View) Err() error { return v.err }
