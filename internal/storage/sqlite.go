// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/jeranaias/chatstore/internal/model"
)

// =============================================================================
// SQLITE DRIVER
// =============================================================================

// sqliteDriver opens stores backed by modernc.org/sqlite.
type sqliteDriver struct {
	path        string
	busyTimeout time.Duration
	db          *sql.DB
}

func (d *sqliteDriver) probe(ctx context.Context) (int, error) {
	if d.db == nil {
		db, err := sql.Open("sqlite", d.path)
		if err != nil {
			return 0, errors.Wrap(err, "open database")
		}

		// SQLite only supports one writer at a time, so limit connections.
		// The single connection is kept forever so per-connection pragmas stick.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		pragmas := []string{
			fmt.Sprintf("PRAGMA busy_timeout=%d", d.busyTimeout.Milliseconds()),
			"PRAGMA journal_mode=WAL",
			"PRAGMA synchronous=NORMAL",
			"PRAGMA temp_store=MEMORY",
			"PRAGMA foreign_keys=ON",
		}
		for _, pragma := range pragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return 0, errors.Wrapf(err, "set %s", pragma)
			}
		}
		d.db = db
	}

	var version int
	if err := d.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, errors.Wrap(err, "read user_version")
	}
	return version, nil
}

func (d *sqliteDriver) open(ctx context.Context, version int) (RecordStore, error) {
	if version > SchemaVersion {
		return nil, conflictErr(version)
	}

	steps := pendingMigrations(version)
	if len(steps) > 0 {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, errors.Wrap(err, "begin migration")
		}
		defer tx.Rollback()

		for _, m := range steps {
			for _, stmt := range m.sqlite {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return nil, errors.Wrapf(err, "migration %d (%s)", m.version, m.name)
				}
			}
		}
		// user_version does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return nil, errors.Wrap(err, "write user_version")
		}
		if err := tx.Commit(); err != nil {
			return nil, errors.Wrap(err, "commit migration")
		}
	}

	return &sqliteStore{db: d.db}, nil
}

func (d *sqliteDriver) destroy(mode RecoveryMode, now time.Time) (string, error) {
	if err := d.close(); err != nil {
		return "", errors.Wrap(err, "close database")
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(d.path + suffix); err != nil && !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "remove %s%s", d.path, suffix)
		}
	}
	return discardFile(d.path, mode, now)
}

func (d *sqliteDriver) close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// =============================================================================
// SQLITE STORE
// =============================================================================

// sqliteStore implements RecordStore over the chats and snapshots tables.
type sqliteStore struct {
	db *sql.DB
}

const chatColumns = "id, url_id, description, messages, timestamp, metadata"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (model.ChatRecord, error) {
	var (
		rec      model.ChatRecord
		urlID    sql.NullString
		messages string
		metadata sql.NullString
	)
	if err := row.Scan(&rec.ID, &urlID, &rec.Description, &messages, &rec.Timestamp, &metadata); err != nil {
		return rec, err
	}
	rec.URLID = urlID.String

	if err := json.Unmarshal([]byte(messages), &rec.Messages); err != nil {
		return rec, errors.Wrapf(err, "decode messages of chat %q", rec.ID)
	}
	if rec.Messages == nil {
		rec.Messages = []model.Message{}
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			return rec, errors.Wrapf(err, "decode metadata of chat %q", rec.ID)
		}
	}
	return rec, nil
}

func (s *sqliteStore) GetAll(ctx context.Context) ([]model.ChatRecord, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+chatColumns+" FROM chats")
	if err != nil {
		return nil, storeErr(err, "list chats")
	}
	defer rows.Close()

	var out []model.ChatRecord
	for rows.Next() {
		rec, err := scanChat(rows)
		if err != nil {
			return nil, storeErr(err, "list chats")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "list chats")
	}
	return out, nil
}

func (s *sqliteStore) GetByID(ctx context.Context, id string) (*model.ChatRecord, error) {
	return s.getOne(ctx, "SELECT "+chatColumns+" FROM chats WHERE id = ?", id)
}

func (s *sqliteStore) GetBySlug(ctx context.Context, urlID string) (*model.ChatRecord, error) {
	if urlID == "" {
		return nil, nil
	}
	return s.getOne(ctx, "SELECT "+chatColumns+" FROM chats WHERE url_id = ?", urlID)
}

func (s *sqliteStore) getOne(ctx context.Context, query, key string) (*model.ChatRecord, error) {
	rec, err := scanChat(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "get chat %q", key)
	}
	return &rec, nil
}

func (s *sqliteStore) Put(ctx context.Context, rec model.ChatRecord) error {
	messages := rec.Messages
	if messages == nil {
		messages = []model.Message{}
	}
	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return storeErr(err, "encode messages of chat %q", rec.ID)
	}

	var metadata sql.NullString
	if len(rec.Metadata) > 0 {
		mdJSON, err := json.Marshal(rec.Metadata)
		if err != nil {
			return storeErr(err, "encode metadata of chat %q", rec.ID)
		}
		metadata = sql.NullString{String: string(mdJSON), Valid: true}
	}

	// Empty slugs are stored as NULL so the unique index ignores them.
	urlID := sql.NullString{String: rec.URLID, Valid: rec.URLID != ""}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err, "put chat %q", rec.ID)
	}
	defer tx.Rollback()

	// Update in place first; the id is covered by two unique indexes, so an
	// upsert clause cannot name a single conflict target.
	res, err := tx.ExecContext(ctx, `
		UPDATE chats
		SET url_id = ?, description = ?, messages = ?, timestamp = ?, metadata = ?
		WHERE id = ?`,
		urlID, rec.Description, string(msgJSON), rec.Timestamp, metadata, rec.ID,
	)
	if err == nil {
		var n int64
		if n, err = res.RowsAffected(); err == nil && n == 0 {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO chats ("+chatColumns+") VALUES (?, ?, ?, ?, ?, ?)",
				rec.ID, urlID, rec.Description, string(msgJSON), rec.Timestamp, metadata,
			)
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return constraintErr(err, rec.ID, rec.URLID)
		}
		return storeErr(err, "put chat %q", rec.ID)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err, "put chat %q", rec.ID)
	}
	return nil
}

func (s *sqliteStore) DeleteByID(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err, "delete chat %q", id)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshots WHERE chat_id = ?", id); err != nil {
		return storeErr(err, "delete snapshot of chat %q", id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ?", id); err != nil {
		return storeErr(err, "delete chat %q", id)
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err, "delete chat %q", id)
	}
	return nil
}

func (s *sqliteStore) ScanSlugs(ctx context.Context) ([]string, error) {
	return s.column(ctx, "SELECT url_id FROM chats WHERE url_id IS NOT NULL AND url_id != ''", "scan slugs")
}

func (s *sqliteStore) Keys(ctx context.Context) ([]string, error) {
	return s.column(ctx, "SELECT id FROM chats", "list chat ids")
}

// column runs a single-column string query.
func (s *sqliteStore) column(ctx context.Context, query, what string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr(err, "%s", what)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storeErr(err, "%s", what)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "%s", what)
	}
	return out, nil
}

func (s *sqliteStore) GetSnapshot(ctx context.Context, chatID string) (*model.Snapshot, error) {
	var (
		snap model.Snapshot
		data string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT chat_id, message_id, data, updated_at FROM snapshots WHERE chat_id = ?", chatID,
	).Scan(&snap.ChatID, &snap.MessageID, &data, &snap.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "get snapshot of chat %q", chatID)
	}
	snap.Data = json.RawMessage(data)
	return &snap, nil
}

func (s *sqliteStore) PutSnapshot(ctx context.Context, snap model.Snapshot) error {
	data := string(snap.Data)
	if data == "" {
		data = "null"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (chat_id, message_id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			message_id = excluded.message_id,
			data       = excluded.data,
			updated_at = excluded.updated_at`,
		snap.ChatID, snap.MessageID, data, snap.UpdatedAt,
	)
	if err != nil {
		return storeErr(err, "put snapshot of chat %q", snap.ChatID)
	}
	return nil
}

func (s *sqliteStore) DeleteSnapshot(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE chat_id = ?", chatID); err != nil {
		return storeErr(err, "delete snapshot of chat %q", chatID)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// isUniqueViolation reports whether err came from a unique index.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
