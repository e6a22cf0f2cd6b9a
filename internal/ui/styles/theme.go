// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// CONTAINER AND HEADER STYLES
	// ==========================================================================

	App       lipgloss.Style
	Container lipgloss.Style
	Header    lipgloss.Style
	Greeting  lipgloss.Style

	// ==========================================================================
	// MESSAGE BUBBLE STYLES
	// ==========================================================================

	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	AttachmentTag   lipgloss.Style
	QuoteBlock      lipgloss.Style

	// ==========================================================================
	// SELECTION STYLES
	// ==========================================================================

	SelectionActive lipgloss.Style
	SelectionHint   lipgloss.Style

	// ==========================================================================
	// INPUT AREA STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	PendingBanner  lipgloss.Style

	// ==========================================================================
	// STATUS STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	Spinner      lipgloss.Style
	TypingText   lipgloss.Style
	ErrorText    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for the given preference ("dark" or "light").
// The preference overrides terminal background detection so the choice
// persists across sessions the same way on every terminal.
func NewTheme(preference string) *Theme {
	isDark := preference != "light"
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: termenv.ColorProfile(),
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Container = lipgloss.NewStyle().Padding(0, 1)

	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal).
		Background(SurfaceDim).
		Padding(0, 2)

	t.Greeting = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true).
		Padding(1, 2)

	// Message bubbles
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)

	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(AssistantBubbleBorder).
		Padding(0, 1).
		MarginRight(4)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.AttachmentTag = lipgloss.NewStyle().
		Foreground(Amber).
		Italic(true)

	t.QuoteBlock = lipgloss.NewStyle().
		Foreground(QuoteFg).
		Background(QuoteBg).
		Padding(0, 1).
		Italic(true)

	// Selection
	t.SelectionActive = lipgloss.NewStyle().
		Reverse(true)

	t.SelectionHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Input area
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Teal)

	t.PendingBanner = lipgloss.NewStyle().
		Foreground(QuoteFg).
		Background(QuoteBg).
		Padding(0, 1)

	// Status
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)

	t.Spinner = lipgloss.NewStyle().
		Foreground(Teal)

	t.TypingText = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.ErrorText = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme's layout dimensions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// Toggle flips between dark and light and rebuilds the styles. Returns the
// new preference name.
func (t *Theme) Toggle() string {
	t.IsDark = !t.IsDark
	lipgloss.SetHasDarkBackground(t.IsDark)
	t.initStyles()
	if t.IsDark {
		return "dark"
	}
	return "light"
}
