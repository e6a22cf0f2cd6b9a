// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for the conversation transcript.
//
// This package defines the core domain types used throughout the application
// for representing a chat session between the user and Elli.
//
// # Key Types
//
//   - Transcript: Append-only container for a chat session
//   - Turn: Single message with kind, text, and optional attachment or quote
//   - HistoryEntry: Wire-shaped history item for upstream requests
//   - Kind: Turn author enumeration (user, assistant)
//
// # Usage
//
// Create a transcript and append turns:
//
//	tr := model.NewTranscript()
//	tr.AddUserTurn("Hello!")
//	turn := tr.AddAssistantTurn()
//	turn.AppendChunk("Hi ")
//	turn.AppendChunk("there!")
//	turn.FinalizeStream()
//
// Streaming turns are excluded from History() until finalized, so an
// in-flight answer never leaks into upstream context.
package model
