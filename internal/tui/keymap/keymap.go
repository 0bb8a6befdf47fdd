// Package keymap defines the key bindings of the chalbox TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/chalbox/internal/container"
	"github.com/Iron-Ham/chalbox/internal/lifecycle"
)

// KeyMap holds the bindings shown in the help bar.
type KeyMap struct {
	Create    key.Binding
	Extend    key.Binding
	Terminate key.Binding
	Refresh   key.Binding
	Copy      key.Binding
	Open      key.Binding
	Switch    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

// Default returns the default bindings.
func Default() KeyMap {
	return KeyMap{
		Create: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create"),
		),
		Extend: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "extend"),
		),
		Terminate: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "terminate"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy"),
		),
		Open: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "open"),
		),
		Switch: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "challenge"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Create, k.Extend, k.Terminate, k.Refresh, k.Copy, k.Open, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Create, k.Extend, k.Terminate, k.Refresh},
		{k.Copy, k.Open, k.Switch},
		{k.Help, k.Quit},
	}
}

// Sync enables exactly the bindings that make sense for s. Disabled
// bindings neither match nor show in the help bar. Switch is never
// disabled.
func (k *KeyMap) Sync(s lifecycle.UIState) {
	k.Create.SetEnabled(s.CanTrigger(container.OpRequest))
	k.Extend.SetEnabled(s.CanTrigger(container.OpRenew))
	k.Terminate.SetEnabled(s.CanTrigger(container.OpStop))
	k.Refresh.SetEnabled(s.CanTrigger(container.OpView))

	d := s.Alert.Connection
	k.Copy.SetEnabled(s.Alert.Kind == lifecycle.AlertConnection && d != nil)
	k.Open.SetEnabled(s.Alert.Kind == lifecycle.AlertConnection && d != nil && d.URL != "")
}

// Operation returns the container operation bound to msg, if any.
func (k KeyMap) Operation(msg tea.KeyMsg) (container.Operation, bool) {
	switch {
	case key.Matches(msg, k.Create):
		return container.OpRequest, true
	case key.Matches(msg, k.Extend):
		return container.OpRenew, true
	case key.Matches(msg, k.Terminate):
		return container.OpStop, true
	case key.Matches(msg, k.Refresh):
		return container.OpView, true
	}
	return "", false
}
