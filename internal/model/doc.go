// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures persisted by chatstore.
//
// # Key Types
//
//   - ChatRecord: A persisted chat session (id, slug, description, messages, timestamp)
//   - Message: Opaque JSON message; unknown fields are kept in Extra and written back
//   - Snapshot: Opaque workspace snapshot attached to a chat
//   - Role: Message role enumeration (user, assistant, system, tool)
//
// # Usage
//
//	rec := model.ChatRecord{
//	    ID:       "1",
//	    Messages: []model.Message{{ID: "m1", Role: model.RoleUser, Content: "Hello!"}},
//	}
//	clone := rec.Clone() // messages, extra fields and metadata are copied
//
// Validate a caller-supplied timestamp before persisting:
//
//	if _, err := model.ParseTimestamp(ts); err != nil {
//	    // reject
//	}
package model
