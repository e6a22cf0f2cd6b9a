// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders assistant markdown for terminal display.
//
// Rendering is applied to settled turns only; text still streaming is shown
// raw (with fenced code blocks highlighted separately) so partial markdown
// never flickers through half-parsed states.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdownRenderer creates a renderer for the given wrap width and theme.
func NewMarkdownRenderer(width int, dark bool) *MarkdownRenderer {
	m := &MarkdownRenderer{width: width, dark: dark}
	m.rebuild()
	return m
}

// rebuild recreates the glamour renderer. A nil renderer means fall back to
// plain text.
func (m *MarkdownRenderer) rebuild() {
	style := "light"
	if m.dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = r
}

// SetWidth updates the wrap width.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width == m.width {
		return
	}
	m.width = width
	m.rebuild()
}

// SetDark switches between the dark and light glamour styles.
func (m *MarkdownRenderer) SetDark(dark bool) {
	if dark == m.dark {
		return
	}
	m.dark = dark
	m.rebuild()
}

// Render renders markdown content. Returns the content unchanged when the
// renderer is unavailable or rendering fails.
func (m *MarkdownRenderer) Render(content string) string {
	if m.renderer == nil || content == "" {
		return content
	}
	out, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	// Glamour pads with leading/trailing blank lines; the bubble layout
	// supplies its own spacing.
	return strings.Trim(out, "\n")
}
