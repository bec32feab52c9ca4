// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
//
// It has two halves: the schema manager (Open, OpenStrict) which produces a
// ready handle and recovers from schema version conflicts, and the record
// store (RecordStore) which offers atomic get/put/delete/scan primitives over
// the chats collection, keyed by id with a unique secondary key (the slug).
//
// # Key Types
//
//   - DB: Ready handle returned by Open; implements RecordStore
//   - RecordStore: Atomic primitives, one transaction per call
//   - Options: Path, backend, recovery mode and logger
//   - State: Schema manager state machine position
//
// # Usage
//
// Open the store, degrading to "no history" when it is unavailable:
//
//	db := storage.Open(ctx, storage.Options{Path: path})
//	if db == nil {
//	    // persistence is absent; keep running without history
//	}
//	defer db.Close()
//
// # Backends
//
// The default backend is SQLite (pure Go, modernc.org/sqlite). A bbolt
// backend is available for environments that prefer a single-writer
// key/value file. Both expose identical semantics.
//
// # Concurrency
//
// Every RecordStore method runs in its own transaction. There are no
// multi-operation transactions, so read-then-write sequences (such as slug
// allocation followed by Put) are not atomic end to end; callers detect the
// loser of such a race through ErrConstraintViolation.
package storage
