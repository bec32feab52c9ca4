// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/jeranaias/chatstore/internal/model"
)

// =============================================================================
// RECORD STORE
// =============================================================================

// RecordStore is the set of atomic primitives over the chats collection.
// Each method runs in its own transaction.
type RecordStore interface {
	// GetAll returns every record, in no particular order.
	GetAll(ctx context.Context) ([]model.ChatRecord, error)

	// GetByID looks a record up by primary key. It returns nil, nil when absent.
	GetByID(ctx context.Context, id string) (*model.ChatRecord, error)

	// GetBySlug looks a record up through the unique url id index.
	// It returns nil, nil when absent.
	GetBySlug(ctx context.Context, urlID string) (*model.ChatRecord, error)

	// Put inserts or replaces the record keyed by its id. It fails with
	// ErrConstraintViolation when the url id belongs to a different record.
	Put(ctx context.Context, rec model.ChatRecord) error

	// DeleteByID removes the record and its snapshot. Deleting an absent id succeeds.
	DeleteByID(ctx context.Context, id string) error

	// ScanSlugs walks every record and collects the non-empty url ids.
	ScanSlugs(ctx context.Context) ([]string, error)

	// Keys returns every primary key.
	Keys(ctx context.Context) ([]string, error)

	// GetSnapshot returns the snapshot for a chat, or nil, nil when there is none.
	GetSnapshot(ctx context.Context, chatID string) (*model.Snapshot, error)

	// PutSnapshot inserts or replaces the snapshot for snap.ChatID.
	PutSnapshot(ctx context.Context, snap model.Snapshot) error

	// DeleteSnapshot removes a chat's snapshot. Deleting an absent snapshot succeeds.
	DeleteSnapshot(ctx context.Context, chatID string) error

	// Close releases the underlying database.
	Close() error
}

// =============================================================================
// OPTIONS
// =============================================================================

// Backend selects the embedded database engine.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendBolt   Backend = "bolt"
)

// RecoveryMode controls what happens to a store that hits a schema version conflict.
type RecoveryMode string

const (
	// RecoveryBackup renames the conflicting file aside, then recreates the store.
	RecoveryBackup RecoveryMode = "backup"
	// RecoveryRecreate deletes the conflicting file, then recreates the store.
	RecoveryRecreate RecoveryMode = "recreate"
)

// Options configures Open.
type Options struct {
	// Path is the database file. An empty path means no storage is available.
	Path string

	// Backend defaults to BackendSQLite.
	Backend Backend

	// Recovery defaults to RecoveryBackup.
	Recovery RecoveryMode

	// BusyTimeout bounds how long a call waits for a locked database.
	// Default: 5 seconds
	BusyTimeout time.Duration

	// Logger receives state transitions and recovery warnings.
	// Default: log.Default()
	Logger *log.Logger
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.Backend == "" {
		o.Backend = BackendSQLite
	}
	if o.Recovery == "" {
		o.Recovery = RecoveryBackup
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// ParseBackend validates a backend name.
func ParseBackend(s string) (Backend, bool) {
	switch Backend(s) {
	case BackendSQLite, "":
		return BackendSQLite, true
	case BackendBolt, "bbolt":
		return BackendBolt, true
	}
	return "", false
}

// ParseRecoveryMode validates a recovery mode name.
func ParseRecoveryMode(s string) (RecoveryMode, bool) {
	switch RecoveryMode(s) {
	case RecoveryBackup, "":
		return RecoveryBackup, true
	case RecoveryRecreate:
		return RecoveryRecreate, true
	}
	return "", false
}
