// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the elli TUI.
//
// All colors are Lip Gloss AdaptiveColor values so the palette follows the
// light/dark theme preference. The Theme struct holds every style used by
// the chat view; NewTheme builds one for a preference and Toggle flips it
// at runtime, overriding terminal background detection so the persisted
// choice wins on every terminal.
package styles
