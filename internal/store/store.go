// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides session-scoped transcript persistence.
//
// The transcript survives restarts of the chat client within the same
// session: it lives in a single JSON file written atomically after every
// settled turn. Clearing the session removes the file.
package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/ellichat/elli/internal/model"
	"github.com/ellichat/elli/internal/util"
)

// =============================================================================
// STORED TYPES
// =============================================================================

// StoredTurn is the persisted form of a turn. Raw attachment bytes are never
// written; only the display-safe reference survives.
type StoredTurn struct {
	Kind          string               `json:"kind"`
	Text          string               `json:"text"`
	QuotedExcerpt string               `json:"quoted_excerpt,omitempty"`
	Attachment    *model.AttachmentRef `json:"attachment,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// StoredSession is the on-disk transcript file.
type StoredSession struct {
	SessionID string       `json:"session_id"`
	Theme     string       `json:"theme,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Turns     []StoredTurn `json:"turns"`
}

// =============================================================================
// SESSION STORE
// =============================================================================

const sessionFileName = "session.json"

// SessionStore persists the transcript of the current session.
type SessionStore struct {
	// BaseDir is the directory holding the session file.
	// Default: ~/.elli/
	BaseDir string
}

// NewSessionStore creates a store rooted at ~/.elli.
func NewSessionStore() (*SessionStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewSessionStoreWithDir(filepath.Join(homeDir, ".elli"))
}

// NewSessionStoreWithDir creates a store with a custom directory.
func NewSessionStoreWithDir(baseDir string) (*SessionStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &SessionStore{BaseDir: baseDir}, nil
}

// sessionPath returns the session file path.
func (s *SessionStore) sessionPath() string {
	return filepath.Join(s.BaseDir, sessionFileName)
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save persists the transcript. Streaming turns are skipped: only settled
// text is written, so a crash mid-stream never persists a half answer.
func (s *SessionStore) Save(tr *model.Transcript, theme string) error {
	session := StoredSession{
		SessionID: tr.SessionID,
		Theme:     theme,
		CreatedAt: tr.CreatedAt,
		UpdatedAt: time.Now(),
		Turns:     make([]StoredTurn, 0, len(tr.Turns)),
	}

	for _, t := range tr.Turns {
		if t.IsStreaming {
			continue
		}
		session.Turns = append(session.Turns, StoredTurn{
			Kind:          t.Kind.String(),
			Text:          t.Text,
			QuotedExcerpt: t.QuotedExcerpt,
			Attachment:    t.Attachment,
			Timestamp:     t.Timestamp,
		})
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(s.sessionPath(), data, 0644)
}

// Load restores the persisted transcript in its exact stored order. Returns
// (nil, "", nil) when no session file exists.
func (s *SessionStore) Load() (*model.Transcript, string, error) {
	data, err := os.ReadFile(s.sessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", nil
		}
		return nil, "", err
	}

	var session StoredSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, "", err
	}

	tr := model.NewTranscript()
	if session.SessionID != "" {
		tr.SessionID = session.SessionID
	}
	if !session.CreatedAt.IsZero() {
		tr.CreatedAt = session.CreatedAt
	}

	for _, st := range session.Turns {
		var turn *model.Turn
		switch model.Kind(st.Kind) {
		case model.KindAssistant:
			turn = tr.AddAssistantText(st.Text)
		default:
			turn = tr.AddUserTurn(st.Text)
			turn.QuotedExcerpt = st.QuotedExcerpt
			turn.Attachment = st.Attachment
		}
		if !st.Timestamp.IsZero() {
			turn.Timestamp = st.Timestamp
		}
	}

	return tr, session.Theme, nil
}

// Clear removes the session file. Clearing an absent session is not an
// error.
func (s *SessionStore) Clear() error {
	err := os.Remove(s.sessionPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Exists reports whether a persisted session is present.
func (s *SessionStore) Exists() bool {
	_, err := os.Stat(s.sessionPath())
	return err == nil
}
