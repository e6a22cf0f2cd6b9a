// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements excerpt selection: promoting a span of the last
// settled assistant answer into a quoted excerpt for the next turn.

package chat

import (
	"strings"
)

// minQuoteLength filters out accidental tiny selections.
const minQuoteLength = 3

// =============================================================================
// PENDING SELECTION
// =============================================================================

// PendingSelection is the ephemeral state of an in-progress excerpt
// selection over the last settled assistant turn. The selection is a
// word-aligned window [start, end) that the user grows and shrinks from
// either edge. It is cleared on promotion or dismissal.
type PendingSelection struct {
	words []string
	start int
	end   int // exclusive
}

// NewPendingSelection starts a selection over the given answer text,
// initially covering its last word (answers usually get quoted near the
// end). Returns nil when the text has no selectable content.
func NewPendingSelection(text string) *PendingSelection {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return &PendingSelection{
		words: words,
		start: len(words) - 1,
		end:   len(words),
	}
}

// Text returns the currently selected excerpt.
func (s *PendingSelection) Text() string {
	return strings.Join(s.words[s.start:s.end], " ")
}

// ExtendLeft grows the selection one word to the left.
func (s *PendingSelection) ExtendLeft() {
	if s.start > 0 {
		s.start--
	}
}

// ExtendRight grows the selection one word to the right.
func (s *PendingSelection) ExtendRight() {
	if s.end < len(s.words) {
		s.end++
	}
}

// ShrinkLeft drops the leftmost selected word, keeping at least one.
func (s *PendingSelection) ShrinkLeft() {
	if s.end-s.start > 1 {
		s.start++
	}
}

// ShrinkRight drops the rightmost selected word, keeping at least one.
func (s *PendingSelection) ShrinkRight() {
	if s.end-s.start > 1 {
		s.end--
	}
}

// Promote returns the excerpt if it is long enough to quote, else "".
func (s *PendingSelection) Promote() string {
	text := strings.TrimSpace(s.Text())
	if len(text) < minQuoteLength {
		return ""
	}
	return text
}

// Bounds returns the selected word window (for rendering).
func (s *PendingSelection) Bounds() (start, end int) {
	return s.start, s.end
}

// Words returns the word list the selection operates over.
func (s *PendingSelection) Words() []string {
	return s.words
}
