// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures persisted by chatstore.
package model

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/jeranaias/chatstore/internal/util"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "User"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a chat history.
//
// The store treats a message as an opaque JSON object. ID, Role and Content
// are decoded when they hold strings; every other field, and any of those
// three that holds something else, is kept verbatim in Extra and written back
// unchanged.
type Message struct {
	ID      string
	Role    Role
	Content string

	// Extra holds the remaining fields of the encoded object.
	Extra map[string]json.RawMessage
}

// UnmarshalJSON decodes any JSON object. A null message decodes to the zero value.
func (m *Message) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.Wrap(err, "message must be a JSON object")
	}

	*m = Message{}
	for key, raw := range fields {
		if s, ok := stringField(raw); ok {
			switch key {
			case "id":
				m.ID = s
				continue
			case "role":
				m.Role = Role(s)
				continue
			case "content":
				m.Content = s
				continue
			}
		}
		if m.Extra == nil {
			m.Extra = make(map[string]json.RawMessage, len(fields))
		}
		m.Extra[key] = append(json.RawMessage(nil), raw...)
	}
	return nil
}

// MarshalJSON writes Extra with ID, Role and Content laid over it. Role and
// Content are omitted when empty, and an empty field never hides a value
// kept in Extra.
func (m Message) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(m.Extra)+3)
	for k, v := range m.Extra {
		fields[k] = v
	}

	set := func(key, value string, always bool) {
		if value == "" {
			if _, kept := fields[key]; kept || !always {
				return
			}
		}
		raw, _ := json.Marshal(value)
		fields[key] = raw
	}
	set("id", m.ID, true)
	set("role", string(m.Role), false)
	set("content", m.Content, false)

	return json.Marshal(fields)
}

func stringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// Preview returns the content truncated to maxLen runes.
func (m Message) Preview(maxLen int) string {
	return util.TruncateRunes(m.Content, maxLen)
}

// CloneMessages copies a message sequence by value, preserving order.
// A nil input yields an empty, non-nil slice so persisted records always
// carry a JSON array.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// IndexOfMessage returns the position of the message with the given ID, or -1.
func IndexOfMessage(msgs []Message, id string) int {
	for i, m := range msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}
