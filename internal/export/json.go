// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/jeranaias/chatstore/internal/model"
)

// =============================================================================
// JSON DOCUMENT
// =============================================================================

// ErrInvalidDocument is returned by ParseDocument for unusable input.
var ErrInvalidDocument = errors.New("invalid chat export")

// Document is the JSON export of one session.
type Document struct {
	ID          string            `json:"id"`
	URLID       string            `json:"urlId,omitempty"`
	Description string            `json:"description,omitempty"`
	Messages    []model.Message   `json:"messages"`
	Timestamp   string            `json:"timestamp,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ExportDate  string            `json:"exportDate,omitempty"`
}

// NewDocument builds the export document of rec.
func NewDocument(rec *model.ChatRecord, exportedAt string) Document {
	c := rec.Clone()
	return Document{
		ID:          c.ID,
		URLID:       c.URLID,
		Description: c.Description,
		Messages:    c.Messages,
		Timestamp:   c.Timestamp,
		Metadata:    c.Metadata,
		ExportDate:  exportedAt,
	}
}

// ParseDocument decodes an exported session. It requires a messages array
// and, when present, an ISO-8601 timestamp.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode chat export"), ErrInvalidDocument)
	}
	if doc.Messages == nil {
		return nil, errors.Wrap(ErrInvalidDocument, "missing messages")
	}
	if doc.Timestamp != "" {
		if _, err := model.ParseTimestamp(doc.Timestamp); err != nil {
			return nil, errors.Wrapf(ErrInvalidDocument, "bad timestamp %q", doc.Timestamp)
		}
	}
	return &doc, nil
}

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports sessions as a Document.
// JSON exports always carry the complete record so they can be re-imported.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a session to indented JSON.
func (e *JSONExporter) Export(rec *model.ChatRecord) ([]byte, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	doc := NewDocument(rec, model.FormatTimestamp(e.options.now()))
	return json.MarshalIndent(doc, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
