// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across chatstore packages.
package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: truncation counts runes or display cells, never bytes, so
// multi-byte characters are never split.

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// TruncateRunesNoEllipsis truncates a string to a maximum number of runes
// without appending an ellipsis.
func TruncateRunesNoEllipsis(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// TruncateWidth truncates a string to a maximum terminal display width,
// counting wide (CJK, emoji) characters as two cells. The result, ellipsis
// included, never exceeds maxWidth.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// StringWidth returns the display width of a string in terminal cells.
func StringWidth(s string) int {
	return runewidth.StringWidth(s)
}

// PadRight pads s with spaces to the given display width. Strings that are
// already wider are returned unchanged.
func PadRight(s string, width int) string {
	w := StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
