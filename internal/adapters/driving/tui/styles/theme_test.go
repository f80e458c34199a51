package styles

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTheme_AdaptsToBackground(t *testing.T) {
	theme := DefaultTheme()

	for name, c := range map[string]lipgloss.AdaptiveColor{
		"accent":    theme.Accent,
		"user":      theme.User,
		"text":      theme.Text,
		"faint":     theme.Faint,
		"reference": theme.Reference,
		"good":      theme.Good,
		"bad":       theme.Bad,
		"frame":     theme.Frame,
		"bar":       theme.Bar,
	} {
		assert.NotEmpty(t, c.Light, name)
		assert.NotEmpty(t, c.Dark, name)
		assert.NotEqual(t, c.Light, c.Dark, name)
	}
}

func TestDefaultTheme_RolesAreDistinct(t *testing.T) {
	theme := DefaultTheme()
	seen := make(map[string]bool)
	for _, c := range []lipgloss.AdaptiveColor{theme.Accent, theme.User, theme.Reference, theme.Good, theme.Bad} {
		assert.False(t, seen[c.Dark], "duplicate colour %s", c.Dark)
		seen[c.Dark] = true
	}
}

func TestNewStyles(t *testing.T) {
	t.Run("uses the given theme", func(t *testing.T) {
		theme := DefaultTheme()
		theme.Accent = lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"}

		s := NewStyles(theme)

		assert.Same(t, theme, s.Theme())
		assert.Equal(t, theme.Accent, s.Title.GetForeground())
	})

	t.Run("nil theme falls back to the default", func(t *testing.T) {
		s := NewStyles(nil)
		require.NotNil(t, s.Theme())
		assert.Equal(t, DefaultTheme().Accent, s.Title.GetForeground())
	})
}

func TestStyles_Roles(t *testing.T) {
	s := DefaultStyles()
	theme := s.Theme()

	assert.True(t, s.Title.GetBold())
	assert.True(t, s.UserTurn.GetBold())
	assert.True(t, s.AssistantTurn.GetBold())
	assert.Equal(t, theme.User, s.UserTurn.GetForeground())
	assert.Equal(t, theme.Accent, s.AssistantTurn.GetForeground())
	assert.Equal(t, theme.Reference, s.Citation.GetForeground())
	assert.Equal(t, theme.Bad, s.Error.GetForeground())
	assert.Equal(t, theme.Accent, s.Selected.GetBackground())
	assert.Equal(t, theme.Bar, s.StatusBar.GetBackground())
}

func TestStyles_Render(t *testing.T) {
	s := DefaultStyles()

	for name, style := range map[string]lipgloss.Style{
		"title":     s.Title,
		"normal":    s.Normal,
		"muted":     s.Muted,
		"selected":  s.Selected,
		"error":     s.Error,
		"citation":  s.Citation,
		"statusbar": s.StatusBar,
	} {
		assert.Contains(t, style.Render("[ID:0] text"), "[ID:0] text", name)
	}
}

func TestStyles_BorderedStylesHaveRoundedBorder(t *testing.T) {
	s := DefaultStyles()

	assert.Equal(t, lipgloss.RoundedBorder(), s.Border.GetBorderStyle())
	assert.Equal(t, lipgloss.RoundedBorder(), s.InputField.GetBorderStyle())
	assert.Equal(t, 1, s.InputField.GetPaddingLeft())
}
