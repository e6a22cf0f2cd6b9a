// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ellichat/elli/internal/model"
	"github.com/ellichat/elli/internal/ui/components"
	"github.com/ellichat/elli/internal/util"
)

const greetingText = "How can I help you study today?"

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.theme.Header.Render("Elli"))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderComposer())
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

// refreshViewport re-renders the transcript into the viewport.
func (m *Model) refreshViewport(gotoBottom bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderTranscript())
	if gotoBottom {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

func (m *Model) renderTranscript() string {
	if m.transcript.IsEmpty() {
		return m.theme.Greeting.Render(greetingText)
	}

	selectionTarget := m.selectionTarget()

	var sections []string
	for _, turn := range m.transcript.Turns {
		if turn.Kind == model.KindUser {
			sections = append(sections, m.renderUserTurn(turn))
		} else if turn == selectionTarget {
			sections = append(sections, m.renderSelectionTurn(turn))
		} else {
			sections = append(sections, m.renderAssistantTurn(turn))
		}
	}

	return strings.Join(sections, "\n\n")
}

// selectionTarget returns the turn being selected from, or nil.
func (m *Model) selectionTarget() *model.Turn {
	if m.state != StateSelecting || m.selection == nil {
		return nil
	}
	return m.transcript.LastAssistantTurn()
}

func (m *Model) renderUserTurn(turn *model.Turn) string {
	var b strings.Builder
	b.WriteString(m.theme.UserLabel.Render(turn.Kind.DisplayName()))
	b.WriteString("\n")

	if turn.QuotedExcerpt != "" {
		b.WriteString(m.theme.QuoteBlock.Render(turn.QuotedExcerpt))
		b.WriteString("\n")
	}
	if turn.Attachment != nil {
		b.WriteString(m.theme.AttachmentTag.Render("📎 " + turn.Attachment.DisplayLabel))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.UserBubble.Render(turn.Text))
	return b.String()
}

func (m *Model) renderAssistantTurn(turn *model.Turn) string {
	var b strings.Builder
	b.WriteString(m.theme.AssistantLabel.Render(turn.Kind.DisplayName()))
	b.WriteString("\n")

	if turn.IsStreaming {
		// Mid-stream text skips the markdown pipeline: partial documents
		// render poorly and re-rendering every chunk flickers. Fenced code
		// blocks still get highlighted.
		text := turn.DisplayText()
		if text == "" {
			b.WriteString(m.spinner.View())
			b.WriteString(m.theme.TypingText.Render(" Elli is thinking..."))
			return b.String()
		}
		b.WriteString(m.theme.AssistantBubble.Render(components.RenderFencedBlocks(text, m.contentWidth())))
		return b.String()
	}

	b.WriteString(m.theme.AssistantBubble.Render(m.markdown.Render(turn.Text)))
	return b.String()
}

// renderSelectionTurn renders the answer with the selected word window
// highlighted.
func (m *Model) renderSelectionTurn(turn *model.Turn) string {
	var b strings.Builder
	b.WriteString(m.theme.AssistantLabel.Render(turn.Kind.DisplayName()))
	b.WriteString("\n")

	start, end := m.selection.Bounds()
	words := m.selection.Words()

	var parts []string
	for i, w := range words {
		if i >= start && i < end {
			parts = append(parts, m.theme.SelectionActive.Render(w))
		} else {
			parts = append(parts, w)
		}
	}

	body := lipgloss.NewStyle().Width(m.contentWidth()).Render(strings.Join(parts, " "))
	b.WriteString(m.theme.AssistantBubble.Render(body))
	return b.String()
}

// =============================================================================
// COMPOSER AND STATUS BAR
// =============================================================================

func (m *Model) renderComposer() string {
	var b strings.Builder

	if m.pendingQuote != "" {
		b.WriteString(m.theme.PendingBanner.Render("Quoting: \"" + util.TruncateRunes(m.pendingQuote, 60) + "\"  (Esc to dismiss)"))
		b.WriteString("\n")
	}
	if m.pendingAttachment != nil {
		b.WriteString(m.theme.PendingBanner.Render("📎 " + m.pendingAttachment.DisplayLabel + "  (Esc to dismiss)"))
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	return b.String()
}

func (m *Model) renderStatusBar() string {
	if m.state == StateSelecting {
		return m.theme.SelectionHint.Render(
			"←/→ extend  ·  shift+←/→ shrink  ·  enter quote  ·  esc cancel")
	}

	if m.statusMsg != "" {
		return m.theme.StatusBar.Render(m.statusMsg)
	}

	if m.state == StateStreaming {
		return m.theme.StatusBar.Render(m.spinner.View() + " generating...")
	}

	shortcuts := []struct{ key, desc string }{
		{"enter", "send"},
		{"ctrl+s", "quote"},
		{"ctrl+t", "theme"},
		{"ctrl+c", "quit"},
	}
	var parts []string
	for _, s := range shortcuts {
		parts = append(parts, m.theme.ShortcutKey.Render(s.key)+m.theme.ShortcutDesc.Render(" "+s.desc))
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

func (m *Model) contentWidth() int {
	w := m.width - 6
	if w < 20 {
		w = 20
	}
	return w
}
