// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the lifecycle state of a store handle.
type State int

const (
	StateUnopened State = iota
	StateProbingVersion
	StateOpeningAtCurrentVersion
	StateReady
	StateRecovering
	StateFailed
)

// String returns the log name of the state.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateProbingVersion:
		return "probing-version"
	case StateOpeningAtCurrentVersion:
		return "opening-at-current-version"
	case StateReady:
		return "ready"
	case StateRecovering:
		return "recovering"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// driver is the backend-specific half of opening a store.
type driver interface {
	// probe opens the file and reports the schema version written in it (0 when new).
	probe(ctx context.Context) (int, error)

	// open brings the probed store to SchemaVersion. It fails with
	// ErrSchemaVersionConflict when version is newer than SchemaVersion.
	open(ctx context.Context, version int) (RecordStore, error)

	// destroy closes the handle and removes the file, or renames it aside in
	// backup mode. It returns the backup path, if any.
	destroy(mode RecoveryMode, now time.Time) (string, error)

	// close releases the handle after a failed open.
	close() error
}

// =============================================================================
// DB
// =============================================================================

// DB is an open chat store. It implements RecordStore by delegating to the
// active backend.
type DB struct {
	RecordStore

	mu      sync.RWMutex
	state   State
	version int

	path    string
	backend Backend
	logger  *log.Logger
}

// State returns the current lifecycle state.
func (db *DB) State() State {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.state
}

// Version returns the schema version the store was opened at.
func (db *DB) Version() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.version
}

// Path returns the database file path.
func (db *DB) Path() string { return db.path }

// Backend returns the engine serving the store.
func (db *DB) Backend() Backend { return db.backend }

func (db *DB) setState(s State) {
	db.mu.Lock()
	prev := db.state
	db.state = s
	db.mu.Unlock()
	db.logger.Debug("store state", "from", prev, "to", s, "path", db.path)
}

// =============================================================================
// OPEN
// =============================================================================

// Open opens or creates the chat store described by opts. It never fails:
// when no usable store can be produced the failure is logged and nil is
// returned, and callers should run without history.
func Open(ctx context.Context, opts Options) *DB {
	db, err := OpenStrict(ctx, opts)
	if err != nil {
		opts.withDefaults().Logger.Warn("chat history unavailable", "path", opts.Path, "err", err)
		return nil
	}
	return db
}

// OpenStrict is Open with the failure surfaced. Every error it returns is
// marked ErrStoreUnavailable.
func OpenStrict(ctx context.Context, opts Options) (*DB, error) {
	opts = opts.withDefaults()

	if opts.Path == "" {
		return nil, unavailableErr(errors.New("no database path configured"), "open store")
	}
	backend, ok := ParseBackend(string(opts.Backend))
	if !ok {
		return nil, unavailableErr(errors.Newf("unknown backend %q", opts.Backend), "open store")
	}
	opts.Backend = backend
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
		return nil, unavailableErr(err, "create store directory")
	}

	db := &DB{
		state:   StateUnopened,
		path:    opts.Path,
		backend: opts.Backend,
		logger:  opts.Logger,
	}
	drv := newDriver(opts)

	store, version, err := db.openDriver(ctx, drv)
	if err != nil && errors.Is(err, ErrSchemaVersionConflict) {
		store, version, err = db.recover(ctx, drv, opts.Recovery, err)
	}
	if err != nil {
		db.setState(StateFailed)
		_ = drv.close()
		return nil, unavailableErr(err, "open store")
	}

	db.RecordStore = store
	db.mu.Lock()
	db.version = version
	db.mu.Unlock()
	db.setState(StateReady)
	return db, nil
}

// openDriver runs the probe and open steps. The returned version is the
// version the store ends up at.
func (db *DB) openDriver(ctx context.Context, drv driver) (RecordStore, int, error) {
	db.setState(StateProbingVersion)
	version, err := drv.probe(ctx)
	if err != nil {
		return nil, 0, errors.Wrap(err, "probe schema version")
	}

	db.setState(StateOpeningAtCurrentVersion)
	if version > 0 && version < SchemaVersion {
		db.logger.Info("migrating chat store", "from", version, "to", SchemaVersion, "path", db.path)
	}
	store, err := drv.open(ctx, version)
	if err != nil {
		return nil, version, err
	}
	return store, SchemaVersion, nil
}

// recover discards a store whose schema conflicts with this build and
// opens a fresh one in its place.
func (db *DB) recover(ctx context.Context, drv driver, mode RecoveryMode, cause error) (RecordStore, int, error) {
	db.setState(StateRecovering)

	backup, err := drv.destroy(mode, time.Now())
	if err != nil {
		return nil, 0, errors.Wrap(err, "discard conflicting store")
	}
	db.logger.Warn("chat store schema conflict, history discarded",
		"path", db.path,
		"mode", mode,
		"backup", backup,
		"err", cause,
	)

	return db.openDriver(ctx, drv)
}

// newDriver returns the driver for opts.Backend.
func newDriver(opts Options) driver {
	if opts.Backend == BackendBolt {
		return &boltDriver{path: opts.Path, timeout: opts.BusyTimeout}
	}
	return &sqliteDriver{path: opts.Path, busyTimeout: opts.BusyTimeout}
}

// backupPath is where a conflicting store is moved in backup mode.
func backupPath(path string, now time.Time) string {
	return path + ".corrupt-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// conflictErr reports a store written by a newer schema.
func conflictErr(found int) error {
	return errors.Mark(
		errors.Newf("store schema v%d is newer than supported v%d", found, SchemaVersion),
		ErrSchemaVersionConflict,
	)
}

// discardFile moves path aside or removes it. Missing files are ignored.
func discardFile(path string, mode RecoveryMode, now time.Time) (string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", nil
	}
	if mode == RecoveryBackup {
		dst := backupPath(path, now)
		if err := os.Rename(path, dst); err != nil {
			return "", errors.Wrapf(err, "back up %s", path)
		}
		return dst, nil
	}
	if err := os.Remove(path); err != nil {
		return "", errors.Wrapf(err, "remove %s", path)
	}
	return "", nil
}
