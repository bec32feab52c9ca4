// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures persisted by chatstore.
package model

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// =============================================================================
// CHAT RECORD TYPE
// =============================================================================

// ChatRecord is the persisted form of a chat session.
type ChatRecord struct {
	// Identity
	ID    string `json:"id"`
	URLID string `json:"urlId,omitempty"` // unique slug, empty when unresolved

	// Content
	Description string    `json:"description,omitempty"`
	Messages    []Message `json:"messages"`

	// Timestamp is an ISO-8601 string, kept exactly as it was written.
	Timestamp string `json:"timestamp"`

	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the record. Messages are copied by value.
func (c ChatRecord) Clone() ChatRecord {
	out := c
	out.Messages = CloneMessages(c.Messages)
	out.Metadata = CloneMetadata(c.Metadata)
	return out
}

// MessageCount returns the number of messages in the record.
func (c ChatRecord) MessageCount() int {
	return len(c.Messages)
}

// Title returns the description, or a preview of the first user message
// when no description has been set.
func (c ChatRecord) Title() string {
	if strings.TrimSpace(c.Description) != "" {
		return c.Description
	}
	for _, msg := range c.Messages {
		if msg.Role == RoleUser && msg.Content != "" {
			return strings.ReplaceAll(msg.Preview(50), "\n", " ")
		}
	}
	return "New chat"
}

// Time parses the record timestamp. The zero time is returned when it does not parse.
func (c ChatRecord) Time() time.Time {
	t, err := ParseTimestamp(c.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CloneMetadata copies a metadata map; nil stays nil.
func CloneMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

// =============================================================================
// SNAPSHOT TYPE
// =============================================================================

// Snapshot is an opaque workspace snapshot taken at a point in a chat.
// There is at most one snapshot per chat.
type Snapshot struct {
	ChatID    string          `json:"chatId"`
	MessageID string          `json:"messageId,omitempty"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt string          `json:"updatedAt"`
}

// =============================================================================
// TIMESTAMPS
// =============================================================================

// ErrBadTimestamp is returned by ParseTimestamp for values that are not ISO-8601.
var ErrBadTimestamp = errors.New("timestamp is not ISO-8601")

// timestampLayouts are tried in order by ParseTimestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 datetime string.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrBadTimestamp
}

// FormatTimestamp renders t in the canonical stored form (UTC, RFC3339 with millis).
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
