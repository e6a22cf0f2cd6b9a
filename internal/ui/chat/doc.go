// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the main chat view component for the elli TUI.

The chat package implements a terminal conversation interface on the
Bubble Tea framework, talking to the relay server for generation.

# Key Components

## Model (model.go)

The Model struct is the central Bubble Tea model:
  - Transcript state and the in-flight placeholder turn
  - Single-flight submission (one generation at a time)
  - Input, viewport, and spinner components
  - Selection mode for quoting an excerpt of the last answer

## View Rendering (view.go)

Rendering logic for the complete interface:
  - Message bubbles with role-specific styling
  - Markdown rendering for settled answers, raw text with fenced code
    highlighting while streaming
  - Pending quote and attachment banners
  - Status bar with shortcuts and streaming indicator

## Submission (submit.go)

The turn submission flow:
  - Quote and document prompt templates
  - Request shape selection (text+history, vision, document)
  - The relay stream feeding the placeholder turn through a channel,
    so all transcript mutation stays in the update loop

## Selection (selection.go)

Word-aligned excerpt selection over the last settled answer. Arrow keys
grow and shrink the window; enter promotes it to a pending quote.

# Usage

	client := relay.NewClient(&relay.ClientConfig{BaseURL: "http://127.0.0.1:5001"})
	m := chat.New(chat.Options{Relay: client})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
