// Package status renders the one-line bar at the bottom of the chat view.
package status

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tinyrag/internal/adapters/driving/tui/styles"
)

// State is the phase of the conversation shown on the left of the bar.
type State string

const (
	StateReady     State = "ready"
	StateStreaming State = "streaming"
	StateAnswered  State = "answered"
	StateError     State = "error"
	StateHelp      State = "help"
)

// Bar shows the conversation state on the left and key hints on the right.
// It is passive: the chat view drives it through the setters.
type Bar struct {
	styles *styles.Styles
	keymap *keymap.KeyMap

	state    State
	message  string
	refCount int
	width    int
}

// NewBar returns a bar in StateReady. Nil arguments select the defaults.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

func (s *Bar) Init() tea.Cmd { return nil }

func (s *Bar) Update(tea.Msg) (*Bar, tea.Cmd) { return s, nil }

// View lays out the label and hints across the full width, keeping at least
// one space between them when the terminal is narrow.
func (s *Bar) View() string {
	left, right := s.label(), s.hints()
	gap := max(1, s.width-lipgloss.Width(left)-lipgloss.Width(right))
	return s.styles.StatusBar.Width(s.width).Render(left + strings.Repeat(" ", gap) + right)
}

func (s *Bar) label() string {
	st := s.styles
	switch s.state {
	case StateStreaming:
		return st.Muted.Render("Thinking...")
	case StateHelp:
		return st.Normal.Render("Help")
	case StateAnswered:
		if s.refCount == 0 {
			return st.Muted.Render("No references")
		}
		return st.Citation.Render(fmt.Sprintf("%d references", s.refCount))
	case StateError:
		if s.message == "" {
			return st.Error.Render("Error")
		}
		return st.Error.Render("Error: " + s.message)
	}
	if s.message != "" {
		return st.Muted.Render(s.message)
	}
	return st.Muted.Render("Ready")
}

func (s *Bar) hints() string {
	bindings := s.keymap.ShortHelp()
	if s.state == StateStreaming {
		bindings = s.keymap.StreamingHelp()
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		parts[i] = b.Help().Key + ": " + b.Help().Desc
	}
	return s.styles.Help.Render(strings.Join(parts, " | "))
}

func (s *Bar) SetState(state State)        { s.state = state }
func (s *Bar) State() State                { return s.state }
func (s *Bar) SetMessage(message string)   { s.message = message }
func (s *Bar) Message() string             { return s.message }
func (s *Bar) SetReferenceCount(count int) { s.refCount = count }
func (s *Bar) ReferenceCount() int         { return s.refCount }
func (s *Bar) SetWidth(width int)          { s.width = width }
func (s *Bar) Width() int                  { return s.width }

// Clear returns the bar to StateReady with no message or references.
func (s *Bar) Clear() {
	s.state, s.message, s.refCount = StateReady, "", 0
}
