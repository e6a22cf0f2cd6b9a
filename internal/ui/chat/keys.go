// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
type KeyMap struct {
	Submit      key.Binding
	Quit        key.Binding
	ScrollUp    key.Binding
	ScrollDown  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Select      key.Binding
	ThemeToggle key.Binding
	Cancel      key.Binding

	// Selection mode bindings
	SelExtendLeft  key.Binding
	SelExtendRight key.Binding
	SelShrinkLeft  key.Binding
	SelShrinkRight key.Binding
	SelPromote     key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("up"),
			key.WithHelp("Up", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("down"),
			key.WithHelp("Down", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		Select: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "select excerpt"),
		),
		ThemeToggle: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "toggle theme"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "dismiss"),
		),

		SelExtendLeft: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("Left", "extend left"),
		),
		SelExtendRight: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("Right", "extend right"),
		),
		SelShrinkLeft: key.NewBinding(
			key.WithKeys("shift+left"),
			key.WithHelp("S-Left", "shrink from left"),
		),
		SelShrinkRight: key.NewBinding(
			key.WithKeys("shift+right"),
			key.WithHelp("S-Right", "shrink from right"),
		),
		SelPromote: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "quote selection"),
		),
	}
}
