package keymap

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap(t *testing.T) {
	km := DefaultKeyMap()

	require.NotNil(t, km)
}

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()

	tests := []struct {
		name    string
		binding key.Binding
		keys    []string
	}{
		{"quit", km.Quit, []string{"ctrl+c"}},
		{"help", km.Help, []string{"f1"}},
		{"back", km.Back, []string{"esc"}},
		{"send", km.Send, []string{"enter"}},
		{"up", km.Up, []string{"up", "k"}},
		{"down", km.Down, []string{"down", "j"}},
		{"select", km.Select, []string{"enter"}},
		{"cancel", km.Cancel, []string{"esc"}},
		{"new chat", km.NewChat, []string{"ctrl+n"}},
		{"documents", km.Documents, []string{"tab"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding.Keys())
			assert.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestKeyMap_QuitDoesNotUsePrintableKeys(t *testing.T) {
	km := DefaultKeyMap()

	// Printable keys belong to the question input.
	assert.False(t, Matches("q", km.Quit))
	assert.False(t, Matches("?", km.Help))
}

func TestKeyMap_ShortHelp(t *testing.T) {
	km := DefaultKeyMap()

	bindings := km.ShortHelp()
	require.Len(t, bindings, 4)
	assert.Equal(t, "send", bindings[0].Help().Desc)
}

func TestKeyMap_StreamingHelp(t *testing.T) {
	km := DefaultKeyMap()

	bindings := km.StreamingHelp()
	require.Len(t, bindings, 2)
	assert.Equal(t, "stop", bindings[0].Help().Desc)
}

func TestKeyMap_FullHelp(t *testing.T) {
	km := DefaultKeyMap()

	groups := km.FullHelp()
	require.Len(t, groups, 3)
	for _, g := range groups {
		assert.NotEmpty(t, g)
	}
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("k", km.Up))
	assert.True(t, Matches("up", km.Up))
	assert.False(t, Matches("x", km.Up))
	assert.False(t, Matches("", km.Up))
}
