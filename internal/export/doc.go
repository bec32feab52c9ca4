// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export provides chat session export and import for chatstore.
//
// Sessions are exported as a JSON document that can be imported again, or
// as Markdown for reading.
//
// # Key Types
//
//   - Exporter: Format interface (JSONExporter, MarkdownExporter)
//   - Document: The JSON export shape, also accepted by import
//   - Options: Output directory and metadata switches
//
// # Supported Formats
//
//   - JSON: Full record plus export date; re-importable
//   - Markdown: Front matter, metadata list and one section per message
//
// # Usage
//
// Export a session:
//
//	path, err := export.ExportToFile(rec, export.NewMarkdownExporter(nil), &export.Options{
//	    OutputDir: "./exports",
//	})
//
// Read an exported document back:
//
//	doc, err := export.ParseDocument(data)
package export
