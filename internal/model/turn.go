// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// KIND TYPE
// =============================================================================

// Kind identifies the author of a turn.
type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// DisplayName returns a human-readable name for the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindUser:
		return "You"
	case KindAssistant:
		return "Elli"
	default:
		return string(k)
	}
}

// =============================================================================
// ATTACHMENT REFERENCE
// =============================================================================

// AttachmentKind classifies what a user attached to a turn.
type AttachmentKind string

const (
	AttachmentImage    AttachmentKind = "image"
	AttachmentDocument AttachmentKind = "document"
)

// AttachmentRef is the display-safe record of an attachment kept in the
// transcript. The raw bytes are never stored here; only a label (file name
// or preview path) survives for rendering and persistence.
type AttachmentRef struct {
	Kind         AttachmentKind `json:"kind"`
	DisplayLabel string         `json:"display_label"`
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn represents a single entry in the conversation transcript.
//
// Assistant turns are created empty and streamed into via AppendChunk; the
// text is frozen by FinalizeStream. User turns are immutable from creation.
type Turn struct {
	// Identity
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// Content
	Text string `json:"text"`

	// User-turn extras
	Attachment    *AttachmentRef `json:"attachment,omitempty"`
	QuotedExcerpt string         `json:"quoted_excerpt,omitempty"`

	// Streaming state (not persisted)
	// strings.Builder avoids quadratic allocations while chunks arrive.
	IsStreaming bool `json:"-"`
	streamText  strings.Builder
}

// NewUserTurn creates an immutable user turn.
func NewUserTurn(text string) *Turn {
	return &Turn{
		ID:        generateTurnID(),
		Kind:      KindUser,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewAssistantTurn creates an empty assistant turn in streaming state.
func NewAssistantTurn() *Turn {
	return &Turn{
		ID:          generateTurnID(),
		Kind:        KindAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// NewAssistantTurnWithText creates a finalized assistant turn.
// Used for fallback messages that never streamed.
func NewAssistantTurnWithText(text string) *Turn {
	return &Turn{
		ID:        generateTurnID(),
		Kind:      KindAssistant,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// =============================================================================
// TURN METHODS
// =============================================================================

// AppendChunk appends streamed text to a streaming turn.
// Chunks must be applied in arrival order; the caller serializes writes.
func (t *Turn) AppendChunk(chunk string) {
	if t.IsStreaming {
		t.streamText.WriteString(chunk)
	}
}

// FinalizeStream freezes a streaming turn. After this call the text is
// immutable and further AppendChunk calls are no-ops.
func (t *Turn) FinalizeStream() {
	if !t.IsStreaming {
		return
	}
	t.Text = t.streamText.String()
	t.streamText.Reset()
	t.IsStreaming = false
}

// SetFallback replaces the content of a streaming turn with a fixed error
// message and freezes it. Only valid while no chunk has been written; a turn
// with partial output is never clobbered (the caller appends a fresh fallback
// turn instead).
func (t *Turn) SetFallback(message string) {
	if !t.IsStreaming {
		return
	}
	t.streamText.Reset()
	t.Text = message
	t.IsStreaming = false
}

// DisplayText returns the text to render (streaming or final).
func (t *Turn) DisplayText() string {
	if t.IsStreaming {
		return t.streamText.String()
	}
	return t.Text
}

// HasContent reports whether any text has been written to the turn.
func (t *Turn) HasContent() bool {
	return len(t.Text) > 0 || t.streamText.Len() > 0
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateTurnID creates a unique turn ID.
func generateTurnID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "turn_" + hex.EncodeToString(bytes)
}
