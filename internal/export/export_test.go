// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatstore/internal/model"
)

var fixedNow = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func testOptions(dir string) *Options {
	return &Options{
		OutputDir:       dir,
		IncludeMetadata: true,
		Now:             func() time.Time { return fixedNow },
	}
}

func sampleRecord() *model.ChatRecord {
	return &model.ChatRecord{
		ID:          "7",
		URLID:       "refactor-parser",
		Description: "Refactor parser",
		Messages: []model.Message{
			{ID: "a", Role: model.RoleUser, Content: "How should I split this parser?"},
			{ID: "b", Role: model.RoleAssistant, Content: "Start with a lexer.\n\n```go\ntype Lexer struct{}\n```"},
		},
		Timestamp: "2024-04-30T09:00:00.000Z",
		Metadata:  map[string]string{"gitUrl": "https://example.com/p.git", "gitBranch": "main"},
	}
}

// =============================================================================
// JSON
// =============================================================================

func TestJSONExport_RoundTrip(t *testing.T) {
	rec := sampleRecord()
	data, err := NewJSONExporter(testOptions("")).Export(rec)
	require.NoError(t, err)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, doc.ID)
	assert.Equal(t, rec.URLID, doc.URLID)
	assert.Equal(t, rec.Description, doc.Description)
	assert.Equal(t, rec.Messages, doc.Messages)
	assert.Equal(t, rec.Timestamp, doc.Timestamp)
	assert.Equal(t, rec.Metadata, doc.Metadata)
	assert.Equal(t, "2024-05-01T10:30:00.000Z", doc.ExportDate)
}

func TestJSONExport_Fields(t *testing.T) {
	data, err := NewJSONExporter(testOptions("")).Export(sampleRecord())
	require.NoError(t, err)
	for _, key := range []string{`"id"`, `"urlId"`, `"description"`, `"messages"`, `"timestamp"`, `"metadata"`, `"exportDate"`} {
		assert.Contains(t, string(data), key)
	}
}

func TestExport_NilRecord(t *testing.T) {
	_, err := NewJSONExporter(nil).Export(nil)
	assert.True(t, errors.Is(err, ErrNilRecord))

	_, err = NewMarkdownExporter(nil).Export(nil)
	assert.True(t, errors.Is(err, ErrNilRecord))
}

func TestParseDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: "{"},
		{name: "missing messages", data: `{"id":"1"}`},
		{name: "null messages", data: `{"id":"1","messages":null}`},
		{name: "bad timestamp", data: `{"id":"1","messages":[],"timestamp":"yesterday"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := ParseDocument([]byte(tc.data))
			assert.Nil(t, doc)
			assert.True(t, errors.Is(err, ErrInvalidDocument), "got %v", err)
		})
	}
}

func TestParseDocument_EmptyMessagesAllowed(t *testing.T) {
	doc, err := ParseDocument([]byte(`{"id":"1","messages":[]}`))
	require.NoError(t, err)
	assert.Empty(t, doc.Messages)
}

func TestParseDocument_KeepsMessageFields(t *testing.T) {
	data := `{"id":"1","messages":[{"id":"a","role":"assistant","content":"ok",` +
		`"annotations":[{"type":"usage"}],"toolInvocations":{"calls":2}}]}`

	doc, err := ParseDocument([]byte(data))
	require.NoError(t, err)
	require.Len(t, doc.Messages, 1)
	assert.Equal(t, "a", doc.Messages[0].ID)

	out, err := NewJSONExporter(testOptions(t.TempDir())).Export(&model.ChatRecord{ID: "1", Messages: doc.Messages})
	require.NoError(t, err)
	again, err := ParseDocument(out)
	require.NoError(t, err)

	want, err := json.Marshal(doc.Messages)
	require.NoError(t, err)
	got, err := json.Marshal(again.Messages)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got))
	assert.JSONEq(t, `[{"type":"usage"}]`, string(again.Messages[0].Extra["annotations"]))
}

// =============================================================================
// MARKDOWN
// =============================================================================

func TestMarkdownExport(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions("")).Export(sampleRecord())
	require.NoError(t, err)
	md := string(data)

	assert.True(t, strings.HasPrefix(md, "---\n"))
	assert.Contains(t, md, "slug: refactor-parser\n")
	assert.Contains(t, md, "messages: 2\n")
	assert.Contains(t, md, "# Refactor parser\n")
	assert.Contains(t, md, "- **gitBranch**: main\n")
	assert.Contains(t, md, "### User\n")
	assert.Contains(t, md, "### Assistant\n")
	assert.Contains(t, md, "```go\ntype Lexer struct{}\n```")
	assert.Less(t, strings.Index(md, "How should I split"), strings.Index(md, "Start with a lexer"))
}

func TestMarkdownExport_YAMLInjection(t *testing.T) {
	rec := sampleRecord()
	rec.Description = "Test\nInjection: malicious"

	data, err := NewMarkdownExporter(testOptions("")).Export(rec)
	require.NoError(t, err)

	frontMatter := strings.SplitN(string(data), "---\n", 3)[1]
	assert.Contains(t, frontMatter, `title: "Test\nInjection: malicious"`)
	assert.NotContains(t, frontMatter, "\nInjection: malicious\n")
}

func TestMarkdownExport_WithoutMetadata(t *testing.T) {
	opts := testOptions("")
	opts.IncludeMetadata = false

	data, err := NewMarkdownExporter(opts).Export(sampleRecord())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Refactor parser"))
	assert.NotContains(t, string(data), "## Metadata")
}

func TestMarkdownExport_EmptySession(t *testing.T) {
	data, err := NewMarkdownExporter(testOptions("")).Export(&model.ChatRecord{ID: "1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), "# New chat")
	assert.Contains(t, string(data), "*No messages.*")
}

func TestFormatRoleLabel(t *testing.T) {
	assert.Equal(t, "User", formatRoleLabel(model.RoleUser))
	assert.Equal(t, "Unknown", formatRoleLabel(""))
	assert.Equal(t, "Critic", formatRoleLabel("critic"))
}

// =============================================================================
// FILES
// =============================================================================

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	path, err := ExportToFile(sampleRecord(), NewJSONExporter(testOptions(dir)), testOptions(dir))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "chat_refactor-parser_20240501_103000.json"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	assert.Equal(t, "7", doc.ID)
}

func TestExportToFile_NilRecord(t *testing.T) {
	_, err := ExportToFile(nil, NewJSONExporter(nil), testOptions(t.TempDir()))
	assert.True(t, errors.Is(err, ErrNilRecord))
}

func TestForFormat(t *testing.T) {
	e, err := ForFormat("md", nil)
	require.NoError(t, err)
	assert.Equal(t, ".md", e.FileExtension())

	e, err = ForFormat("JSON", nil)
	require.NoError(t, err)
	assert.Equal(t, "application/json", e.MimeType())

	_, err = ForFormat("html", nil)
	assert.Error(t, err)
}

func TestFilenameSanitization(t *testing.T) {
	tests := []struct {
		input   string
		mustNot []string
	}{
		{input: "Test/Path\\Name:With*Special?Chars", mustNot: []string{"/", "\\", ":", "*", "?"}},
		{input: "Test<HTML>Tags|Pipe", mustNot: []string{"<", ">", "|"}},
		{input: "Test With Spaces\tAnd\nNewlines\r", mustNot: []string{" ", "\t", "\n", "\r"}},
		{input: "Test\x00\x01\x1fControl\x7fChars", mustNot: []string{"\x00", "\x01", "\x1f", "\x7f"}},
	}

	for _, tt := range tests {
		result := sanitizeFilename(tt.input)
		for _, char := range tt.mustNot {
			assert.NotContains(t, result, char, "sanitizeFilename(%q)", tt.input)
		}
	}

	assert.Equal(t, "chat", sanitizeFilename(""))
	assert.Equal(t, sanitizeFilename("caf\u00e9 notes"), sanitizeFilename("cafe\u0301 notes"))
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("x", 200))), 50)
}
