// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatstore packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth, StringWidth, PadRight: terminal cell aware layout
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
//
// # Usage
//
//	// Fit a chat description into a list column
//	cell := util.PadRight(util.TruncateWidth(desc, 40), 40)
//
//	// Write exports atomically to prevent partial files
//	err := util.AtomicWriteFile(path, data, 0644)
package util
