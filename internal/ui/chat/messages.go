// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the chat
// interface: stream delivery, image synthesis results, and persistence
// outcomes.

package chat

import (
	"github.com/ellichat/elli/internal/attach"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamChunkMsg delivers the next decoded text chunk of the in-flight
// generation. TurnID ties the chunk to the placeholder turn it mutates.
type StreamChunkMsg struct {
	TurnID string
	Text   string
}

// StreamDoneMsg signals that the in-flight generation finished. Err is nil
// on clean completion. The receiver decides between the two failure shapes
// (replace empty placeholder vs append a fresh fallback turn) based on
// whether any chunk reached the placeholder first.
type StreamDoneMsg struct {
	TurnID string
	Err    error
}

// =============================================================================
// IMAGE SYNTHESIS MESSAGES
// =============================================================================

// ImageResultMsg delivers the outcome of an image synthesis request.
type ImageResultMsg struct {
	TurnID string
	Path   string // where the image was saved
	Err    error
}

// =============================================================================
// ATTACHMENT MESSAGES
// =============================================================================

// AttachResultMsg delivers the outcome of preparing an attachment. PDF text
// extraction in particular can take a moment, so preparation runs as a
// command instead of blocking the update loop.
type AttachResultMsg struct {
	Attachment *attach.Attachment
	Err        error
}

// =============================================================================
// PERSISTENCE MESSAGES
// =============================================================================

// SaveDoneMsg reports a background transcript save. Failures are shown in
// the status line but never interrupt the conversation.
type SaveDoneMsg struct {
	Err error
}
