// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/chatstore/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a session to Markdown format.
func (e *MarkdownExporter) Export(rec *model.ChatRecord) ([]byte, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}

	var sb strings.Builder
	title := rec.Title()
	exported := e.options.now()

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(title)))
		sb.WriteString(fmt.Sprintf("id: %s\n", escapeYAML(rec.ID)))
		if rec.URLID != "" {
			sb.WriteString(fmt.Sprintf("slug: %s\n", escapeYAML(rec.URLID)))
		}
		if rec.Timestamp != "" {
			sb.WriteString(fmt.Sprintf("date: %s\n", escapeYAML(rec.Timestamp)))
		}
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(rec.Messages)))
		sb.WriteString(fmt.Sprintf("exported: %s\n", exported.Format(time.RFC3339)))
		sb.WriteString("generator: chatstore\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(title)))

	if e.options.IncludeMetadata && len(rec.Metadata) > 0 {
		sb.WriteString("## Metadata\n\n")
		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", escapeMarkdown(k), rec.Metadata[k]))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	if len(rec.Messages) == 0 {
		sb.WriteString("*No messages.*\n")
	}
	for i, msg := range rec.Messages {
		sb.WriteString(fmt.Sprintf("### %s\n\n", formatRoleLabel(msg.Role)))
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if i < len(rec.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from chatstore on %s*\n",
		exported.Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a formatted label for the message role.
func formatRoleLabel(role model.Role) string {
	if role == "" {
		return "Unknown"
	}
	name := role.DisplayName()
	runes := []rune(name)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML quotes values that would otherwise break the front matter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
