// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across the application.
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
