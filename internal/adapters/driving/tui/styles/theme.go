// Package styles holds the colour palette and lipgloss styles of the chat TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme is the palette. Each colour adapts to light and dark terminals.
type Theme struct {
	Accent    lipgloss.AdaptiveColor
	User      lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	Faint     lipgloss.AdaptiveColor
	Reference lipgloss.AdaptiveColor
	Good      lipgloss.AdaptiveColor
	Bad       lipgloss.AdaptiveColor
	Frame     lipgloss.AdaptiveColor
	Bar       lipgloss.AdaptiveColor
}

// DefaultTheme returns the built-in palette.
func DefaultTheme() *Theme {
	return &Theme{
		Accent:    lipgloss.AdaptiveColor{Light: "#5B21B6", Dark: "#A78BFA"},
		User:      lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"},
		Text:      lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"},
		Faint:     lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"},
		Reference: lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"},
		Good:      lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#86EFAC"},
		Bad:       lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FCA5A5"},
		Frame:     lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"},
		Bar:       lipgloss.AdaptiveColor{Light: "#F3F4F6", Dark: "#111827"},
	}
}

// Styles are the rendered styles shared by every view.
type Styles struct {
	theme *Theme

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Selected lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style

	// InputField frames the question box.
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
	Help       lipgloss.Style
	Border     lipgloss.Style

	// UserTurn and AssistantTurn label transcript entries.
	UserTurn      lipgloss.Style
	AssistantTurn lipgloss.Style

	// Citation renders [ID:n] markers and reference lines.
	Citation lipgloss.Style
}

// NewStyles builds styles from theme, or from DefaultTheme when nil.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	fg := func(c lipgloss.AdaptiveColor) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c)
	}
	rounded := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.Frame)

	return &Styles{
		theme:    theme,
		Title:    fg(theme.Accent).Bold(true),
		Subtitle: fg(theme.User).Bold(true),
		Normal:   fg(theme.Text),
		Muted:    fg(theme.Faint),
		Selected: fg(theme.Bar).Background(theme.Accent).Bold(true),
		Error:    fg(theme.Bad),
		Success:  fg(theme.Good),

		InputField: rounded.Padding(0, 1),
		StatusBar:  fg(theme.Faint).Background(theme.Bar).Padding(0, 1),
		Help:       fg(theme.Faint),
		Border:     rounded,

		UserTurn:      fg(theme.User).Bold(true),
		AssistantTurn: fg(theme.Accent).Bold(true),
		Citation:      fg(theme.Reference),
	}
}

// DefaultStyles returns NewStyles(DefaultTheme()).
func DefaultStyles() *Styles {
	return NewStyles(DefaultTheme())
}

// Theme returns the palette the styles were built from.
func (s *Styles) Theme() *Theme {
	return s.theme
}
