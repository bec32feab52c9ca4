// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for chatstore commands.
//
// USABILITY: colors are disabled for non-TTY output and when NO_COLOR is set.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chatstore/internal/model"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels in key/value blocks.
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(14)

	// ValueStyle is used for regular values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle marks completed writes.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle marks failures.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle marks degraded states such as missing history.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for hints and secondary columns.
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// SeparatorStyle is used for horizontal rules.
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// HighlightStyle is used for slugs so they can be copied at a glance.
	HighlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))
)

// roleStyles colors transcript headings by author.
var roleStyles = map[model.Role]lipgloss.Style{
	model.RoleUser:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
	model.RoleAssistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
	model.RoleSystem:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
}

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal rule. Default width is 60.
func RenderSeparator(width ...int) string {
	w := 60
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return SeparatorStyle.Render(strings.Repeat("=", w))
}

// RenderLabel renders a key/value label with consistent width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}

// RenderRole renders a message author heading.
func RenderRole(role model.Role) string {
	style, ok := roleStyles[role]
	if !ok {
		style = DimStyle.Bold(true)
	}
	return style.Render(role.DisplayName())
}
