// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ellichat/elli/internal/model"
)

func newTestStore(t *testing.T) *SessionStore {
	t.Helper()
	s, err := NewSessionStoreWithDir(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := newTestStore(t)

	tr := model.NewTranscript()
	user := tr.AddUserTurn("what is photosynthesis?")
	user.QuotedExcerpt = "plants convert light"
	user.Attachment = &model.AttachmentRef{
		Kind:         model.AttachmentDocument,
		DisplayLabel: "biology.pdf",
	}
	tr.AddAssistantText("Photosynthesis is the process...")
	tr.AddUserTurn("thanks")
	tr.AddAssistantText("You're welcome!")

	require.NoError(t, s.Save(tr, "dark"))

	loaded, theme, err := s.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, "dark", theme)

	// Identity and order survive the roundtrip exactly.
	require.Equal(t, tr.SessionID, loaded.SessionID)
	require.Equal(t, tr.Len(), loaded.Len())
	for i, want := range tr.Turns {
		got := loaded.Turns[i]
		require.Equal(t, want.Kind, got.Kind, "turn %d kind", i)
		require.Equal(t, want.Text, got.Text, "turn %d text", i)
		require.Equal(t, want.QuotedExcerpt, got.QuotedExcerpt, "turn %d quote", i)
	}

	att := loaded.Turns[0].Attachment
	require.NotNil(t, att)
	require.Equal(t, "biology.pdf", att.DisplayLabel)
	require.Equal(t, model.AttachmentDocument, att.Kind)
}

func TestSaveSkipsStreamingTurn(t *testing.T) {
	s := newTestStore(t)

	tr := model.NewTranscript()
	tr.AddUserTurn("hi")
	streaming := tr.AddAssistantTurn()
	streaming.AppendChunk("half an ans")

	require.NoError(t, s.Save(tr, ""))

	loaded, _, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len(), "streaming turn must not be persisted")
	require.Equal(t, model.KindUser, loaded.Turns[0].Kind)
}

func TestLoadMissingSession(t *testing.T) {
	s := newTestStore(t)

	loaded, theme, err := s.Load()
	require.NoError(t, err)
	require.Nil(t, loaded)
	require.Empty(t, theme)
}

func TestLoadCorruptSession(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.BaseDir, sessionFileName), []byte("{broken"), 0644))

	_, _, err := s.Load()
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)

	tr := model.NewTranscript()
	tr.AddUserTurn("hi")
	require.NoError(t, s.Save(tr, ""))
	require.True(t, s.Exists())

	require.NoError(t, s.Clear())
	require.False(t, s.Exists())

	// Clearing again is fine.
	require.NoError(t, s.Clear())
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	tr := model.NewTranscript()
	tr.AddUserTurn("first")
	require.NoError(t, s.Save(tr, ""))

	tr.AddAssistantText("answer")
	require.NoError(t, s.Save(tr, ""))

	loaded, _, err := s.Load()
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Len())
}
