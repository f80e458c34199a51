// Package keymap holds the chat TUI keybindings.
package keymap

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap groups the bindings used by the chat and document views.
// Quit and Help avoid printable keys so they never steal question input.
type KeyMap struct {
	Quit key.Binding
	Help key.Binding
	Back key.Binding

	// Send submits the question; Cancel stops a streaming answer.
	Send    key.Binding
	Cancel  key.Binding
	NewChat key.Binding

	Up        key.Binding
	Down      key.Binding
	Select    key.Binding
	Documents key.Binding
}

func bind(label, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(label, desc))
}

// DefaultKeyMap returns the built-in bindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: bind("ctrl+c", "quit", "ctrl+c"),
		Help: bind("f1", "help", "f1"),
		Back: bind("esc", "back", "esc"),

		Send:    bind("enter", "send", "enter"),
		Cancel:  bind("esc", "stop", "esc"),
		NewChat: bind("ctrl+n", "new chat", "ctrl+n"),

		Up:        bind("↑/k", "up", "up", "k"),
		Down:      bind("↓/j", "down", "down", "j"),
		Select:    bind("enter", "select", "enter"),
		Documents: bind("tab", "documents", "tab"),
	}
}

// ShortHelp lists the hints shown in the status bar while idle.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Documents, k.Help, k.Quit}
}

// StreamingHelp lists the hints shown while an answer streams.
func (k *KeyMap) StreamingHelp() []key.Binding {
	return []key.Binding{k.Cancel, k.Quit}
}

// FullHelp groups every binding for the help view: chat, navigation, global.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Send, k.Cancel, k.NewChat},
		{k.Up, k.Down, k.Select, k.Back},
		{k.Documents, k.Help, k.Quit},
	}
}

// Matches reports whether the pressed key is one of the binding's keys.
func Matches(pressed string, binding key.Binding) bool {
	return slices.Contains(binding.Keys(), pressed)
}
