// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable UI components for the elli TUI.
//
// # Key Components
//
//   - MarkdownRenderer: Glamour-backed markdown rendering for settled
//     assistant answers, theme and width aware
//   - CodeBlock: Chroma syntax highlighting for fenced code blocks,
//     including unclosed fences that appear mid-stream
//
// Rendering degrades gracefully: when a renderer cannot be constructed or
// fails, the original text is returned unchanged rather than dropped.
package components
