// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides chat session export and import for chatstore.
package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/chatstore/internal/model"
	"github.com/jeranaias/chatstore/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for session exporters.
type Exporter interface {
	// Export converts a session to the target format and returns the content.
	Export(rec *model.ChatRecord) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md", ".json").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrNilRecord is returned when there is no session to export.
var ErrNilRecord = errors.New("chat record is nil")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata includes the front matter and metadata list in Markdown.
	IncludeMetadata bool

	// Now stamps the export date and file name.
	// Default: time.Now
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Now:             time.Now,
	}
}

func (o *Options) now() time.Time {
	if o == nil || o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return NewJSONExporter(opts), nil
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported export format: %s", format),
			"supported formats are json and md",
		)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// ExportToFile exports a session to a file in opts.OutputDir and returns the
// path written. The file is replaced atomically.
func ExportToFile(rec *model.ChatRecord, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if rec == nil {
		return "", ErrNilRecord
	}

	content, err := exporter.Export(rec)
	if err != nil {
		return "", errors.Wrap(err, "export failed")
	}

	name := rec.URLID
	if name == "" {
		name = rec.ID
	}
	filename := fmt.Sprintf("chat_%s_%s%s",
		sanitizeFilename(name),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	dir := opts.OutputDir
	if dir == "" {
		dir = "."
	}
	outputPath := filepath.Join(dir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0644); err != nil {
		return "", errors.Wrap(err, "write file")
	}
	return outputPath, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
// Names are NFC-normalized so composed and decomposed input map to one file.
func sanitizeFilename(s string) string {
	s = util.TruncateRunesNoEllipsis(norm.NFC.String(s), 50)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('-')
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune('_')
		case r < 32 || r == 127:
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "chat"
	}
	return b.String()
}
