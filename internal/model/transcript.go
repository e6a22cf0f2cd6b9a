// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// HISTORY ENTRY
// =============================================================================

// HistoryEntry is the wire form of a completed turn sent to the backend as
// conversation context. Roles follow the gateway convention: "user" and
// "model".
type HistoryEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// =============================================================================
// TRANSCRIPT TYPE
// =============================================================================

// Transcript is the append-only ordered record of a chat session.
//
// Turns are appended, never reordered or removed. A streaming assistant turn
// is mutated in place through the *Turn handle returned by AddAssistantTurn;
// the slice itself only ever grows.
type Transcript struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Turns     []*Turn   `json:"turns"`
}

// NewTranscript creates an empty transcript with a fresh session identity.
func NewTranscript() *Transcript {
	now := time.Now()
	return &Transcript{
		SessionID: uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
		Turns:     make([]*Turn, 0),
	}
}

// =============================================================================
// TRANSCRIPT METHODS
// =============================================================================

// AddUserTurn appends a user turn and returns it.
func (tr *Transcript) AddUserTurn(text string) *Turn {
	turn := NewUserTurn(text)
	tr.Turns = append(tr.Turns, turn)
	tr.UpdatedAt = time.Now()
	return turn
}

// AddAssistantTurn appends an empty streaming assistant turn and returns the
// handle used to feed chunks into it.
func (tr *Transcript) AddAssistantTurn() *Turn {
	turn := NewAssistantTurn()
	tr.Turns = append(tr.Turns, turn)
	tr.UpdatedAt = time.Now()
	return turn
}

// AddAssistantText appends a finalized assistant turn with fixed text.
func (tr *Transcript) AddAssistantText(text string) *Turn {
	turn := NewAssistantTurnWithText(text)
	tr.Turns = append(tr.Turns, turn)
	tr.UpdatedAt = time.Now()
	return turn
}

// Last returns the most recent turn, or nil for an empty transcript.
func (tr *Transcript) Last() *Turn {
	if len(tr.Turns) == 0 {
		return nil
	}
	return tr.Turns[len(tr.Turns)-1]
}

// LastAssistantTurn returns the most recent finalized assistant turn, or nil.
// Streaming turns are skipped: excerpt selection only operates on settled
// text.
func (tr *Transcript) LastAssistantTurn() *Turn {
	for i := len(tr.Turns) - 1; i >= 0; i-- {
		t := tr.Turns[i]
		if t.Kind == KindAssistant && !t.IsStreaming {
			return t
		}
	}
	return nil
}

// Len returns the number of turns.
func (tr *Transcript) Len() int {
	return len(tr.Turns)
}

// IsEmpty reports whether the transcript has no turns.
func (tr *Transcript) IsEmpty() bool {
	return len(tr.Turns) == 0
}

// History builds the gateway-facing conversation context: every settled turn
// in order, mapped to the user/model role pair. The trailing streaming
// placeholder (if any) is excluded so a request never sees its own empty
// answer.
func (tr *Transcript) History() []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(tr.Turns))
	for _, t := range tr.Turns {
		if t.IsStreaming {
			continue
		}
		role := "user"
		if t.Kind == KindAssistant {
			role = "model"
		}
		entries = append(entries, HistoryEntry{Role: role, Text: t.Text})
	}
	return entries
}
