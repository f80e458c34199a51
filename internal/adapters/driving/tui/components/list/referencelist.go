// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tinyrag/internal/core/domain"
)

// ReferenceList displays the citations of an answer in ID order.
type ReferenceList struct {
	ids    []int
	refs   domain.ReferenceMeta
	styles *styles.Styles
	width  int
	height int
}

// NewReferenceList creates a new reference list component.
func NewReferenceList(s *styles.Styles) *ReferenceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ReferenceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// SetReferences replaces the displayed references.
func (r *ReferenceList) SetReferences(refs domain.ReferenceMeta) {
	r.refs = refs
	r.ids = make([]int, 0, len(refs))
	for id := range refs {
		r.ids = append(r.ids, id)
	}
	sort.Ints(r.ids)
}

// View renders the reference list, trimmed to the available height.
func (r *ReferenceList) View() string {
	if len(r.ids) == 0 {
		return ""
	}

	lines := make([]string, 0, len(r.ids)+1)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("References (%d)", len(r.ids))))

	visible := r.height - 1
	if visible < 1 {
		visible = 1
	}
	for i, id := range r.ids {
		if i == visible {
			lines = append(lines, r.styles.Muted.Render(fmt.Sprintf("  ... %d more", len(r.ids)-visible)))
			break
		}
		lines = append(lines, r.renderReference(id, r.refs[id]))
	}

	return strings.Join(lines, "\n")
}

// renderReference formats one citation line.
func (r *ReferenceList) renderReference(id int, ref domain.ChunkRef) string {
	tag := r.styles.Citation.Render(fmt.Sprintf("[ID:%d]", id))

	name := ref.FileName
	maxNameLen := r.width - 24
	if maxNameLen < 10 {
		maxNameLen = 10
	}
	if len(name) > maxNameLen {
		name = ".../" + filepath.Base(name)
	}

	line := "  " + tag + " " + r.styles.Normal.Render(name)
	if ref.ContentType != "" && ref.ContentType != domain.ContentTypeText {
		line += r.styles.Muted.Render(fmt.Sprintf(" (%s)", ref.ContentType))
	}
	return line
}

// References returns the current references.
func (r *ReferenceList) References() domain.ReferenceMeta {
	return r.refs
}

// SetDimensions sets the component dimensions.
func (r *ReferenceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of references.
func (r *ReferenceList) Count() int {
	return len(r.ids)
}

// IsEmpty returns whether the list is empty.
func (r *ReferenceList) IsEmpty() bool {
	return len(r.ids) == 0
}
