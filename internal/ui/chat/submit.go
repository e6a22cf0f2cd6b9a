// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ellichat/elli/internal/attach"
	"github.com/ellichat/elli/internal/model"
	"github.com/ellichat/elli/internal/relay"
)

// FallbackMessage replaces or follows a failed answer.
const FallbackMessage = "Something went wrong. Please try again."

// =============================================================================
// PROMPT COMPOSITION
// =============================================================================

// composeFinalPrompt applies the quote template when a quoted excerpt is
// attached to the outgoing turn. The excerpt is embedded exactly as
// selected; quotes inside it are not escaped.
func composeFinalPrompt(prompt, quote string) string {
	if quote == "" {
		return prompt
	}
	return fmt.Sprintf("Regarding this excerpt: \"%s\"\n\nMy question is: %s", quote, prompt)
}

// composeDocumentPrompt folds extracted document text into the prompt.
func composeDocumentPrompt(content, finalPrompt string) string {
	return fmt.Sprintf("Based on the following document:\n\n---\n%s\n---\n\n%s", content, finalPrompt)
}

// historyToWire maps transcript history entries to the relay wire format.
func historyToWire(entries []model.HistoryEntry) []relay.HistoryItem {
	if len(entries) == 0 {
		return nil
	}
	items := make([]relay.HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, relay.HistoryItem{
			Role:  e.Role,
			Parts: []relay.HistoryPart{{Text: e.Text}},
		})
	}
	return items
}

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// streamRequest captures everything needed to issue one relay call. Built
// synchronously in the update loop, executed in a goroutine.
type streamRequest struct {
	prompt     string
	history    []relay.HistoryItem
	attachment *attach.Attachment
}

// startStream launches the relay call in a goroutine that feeds the event
// channel, and returns the command that waits for the first event. Chunk
// text is only ever applied to the turn inside the update loop, keeping all
// transcript mutation on one goroutine.
func (m *Model) startStream(req streamRequest, turnID string) tea.Cmd {
	ch := make(chan tea.Msg, 32)
	m.streamCh = ch

	go func() {
		defer close(ch)

		onChunk := func(chunk string) {
			ch <- StreamChunkMsg{TurnID: turnID, Text: chunk}
		}

		var err error
		if req.attachment != nil && req.attachment.IsImage() {
			var imageData []byte
			imageData, err = req.attachment.ReadImageBytes()
			if err == nil {
				_, err = m.relay.GenerateVision(context.Background(), req.prompt, req.attachment.MimeType, imageData, onChunk)
			}
		} else {
			_, err = m.relay.Generate(context.Background(), req.prompt, req.history, onChunk)
		}

		ch <- StreamDoneMsg{TurnID: turnID, Err: err}
	}()

	return waitForStream(ch)
}

// waitForStream returns a command that delivers the next stream event.
func waitForStream(ch chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// =============================================================================
// IMAGE SYNTHESIS COMMAND
// =============================================================================

// generateImageCmd runs an /imagine request and saves the result next to the
// session data.
func (m *Model) generateImageCmd(prompt, turnID string) tea.Cmd {
	client := m.relay
	dir := m.imageDir
	return func() tea.Msg {
		data, err := client.GenerateImage(context.Background(), prompt)
		if err != nil {
			return ImageResultMsg{TurnID: turnID, Err: err}
		}

		if err := os.MkdirAll(dir, 0755); err != nil {
			return ImageResultMsg{TurnID: turnID, Err: err}
		}
		path := filepath.Join(dir, fmt.Sprintf("elli-%d.png", time.Now().Unix()))
		if err := os.WriteFile(path, data, 0644); err != nil {
			return ImageResultMsg{TurnID: turnID, Err: err}
		}

		return ImageResultMsg{TurnID: turnID, Path: path}
	}
}

// =============================================================================
// PERSISTENCE COMMAND
// =============================================================================

// saveCmd persists the transcript. The save runs synchronously so no
// goroutine ever reads the transcript while the update loop mutates it; the
// returned command only reports a failure.
func (m *Model) saveCmd() tea.Cmd {
	if m.store == nil {
		return nil
	}
	theme := "dark"
	if !m.theme.IsDark {
		theme = "light"
	}
	err := m.store.Save(m.transcript, theme)
	if err == nil {
		return nil
	}
	return func() tea.Msg {
		return SaveDoneMsg{Err: err}
	}
}
