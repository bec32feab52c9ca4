// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for chatstore commands.
//
// USABILITY: TTY detection for proper terminal handling
//
// Interactive terminals get colors and confirmation prompts. Piped output
// gets neither, and NO_COLOR / FORCE_COLOR are respected.

package cli

import (
	"os"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// =============================================================================
// TERMINAL WIDTH
// =============================================================================

const (
	// DefaultTerminalWidth is the fallback width when detection fails.
	DefaultTerminalWidth = 80

	// MinTerminalWidth is the narrowest layout the list table supports.
	MinTerminalWidth = 40
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled returns true if colored output should be used.
// See https://no-color.org/ for the NO_COLOR convention.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		if os.Getenv("NO_COLOR") != "" {
			colorsEnabled = false
			return
		}
		if os.Getenv("FORCE_COLOR") != "" {
			colorsEnabled = true
			return
		}
		colorsEnabled = IsStdoutTTY()
	})
	return colorsEnabled
}

// GetColorProfile returns the termenv profile lipgloss should render with.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
