// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

const (
	// SchemaVersion tracks the store schema version for migrations.
	// v1: chats collection. v2: snapshots collection.
	SchemaVersion = 2
)

// migration moves a store from version-1 to version.
type migration struct {
	version int
	name    string
	sqlite  []string
	buckets []string // bolt buckets created by this step
}

// migrations is the ordered upgrade ladder. A fresh store runs every step.
var migrations = []migration{
	{
		version: 1,
		name:    "create chats",
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS chats (
				id          TEXT PRIMARY KEY,
				url_id      TEXT,
				description TEXT NOT NULL DEFAULT '',
				messages    TEXT NOT NULL,
				timestamp   TEXT NOT NULL,
				metadata    TEXT
			)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_chats_id ON chats(id)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_chats_url_id ON chats(url_id)`,
		},
		buckets: []string{bucketChats, bucketURLIndex},
	},
	{
		version: 2,
		name:    "create snapshots",
		sqlite: []string{
			`CREATE TABLE IF NOT EXISTS snapshots (
				chat_id    TEXT PRIMARY KEY,
				message_id TEXT NOT NULL DEFAULT '',
				data       TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
		},
		buckets: []string{bucketSnapshots},
	},
}

// pendingMigrations returns the steps needed to bring from up to SchemaVersion.
func pendingMigrations(from int) []migration {
	var out []migration
	for _, m := range migrations {
		if m.version > from {
			out = append(out, m)
		}
	}
	return out
}

// Bolt bucket names.
const (
	bucketMeta      = "meta"
	bucketChats     = "chats"
	bucketURLIndex  = "chats_url_id"
	bucketSnapshots = "snapshots"

	metaSchemaVersion = "schema_version"
)
