// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - JSON envelopes and rendered transcripts.

package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/cockroachdb/errors"
)

// JSONResponse is the envelope every command prints in --json mode.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Timestamp is when the response was generated (RFC 3339, UTC)
	Timestamp string `json:"timestamp"`

	// Command is the command that produced the response
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Write encodes the response to w with indentation.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(err, "encode JSON response")
	}
	return nil
}

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// renderMarkdown renders markdown for the terminal at the given width.
// The input is returned unchanged when rendering is not possible.
func renderMarkdown(content string, width int) string {
	styleOpt := glamour.WithStandardStyle("notty")
	if ColorsEnabled() {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
