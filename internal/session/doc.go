// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session operations of chatstore.
//
// Service is the only layer outside collaborators call. It resolves slugs
// through the slug allocator, mints ids through an IDSource, and persists
// through a storage.RecordStore handed to it at construction.
//
// # Key Types
//
//   - Service: Save, fetch, delete, fork, duplicate and rename sessions
//   - SaveOptions: Optional slug, seed, description, timestamp and metadata
//   - IDSource: Primary key scheme (NumericIDs, UUIDIDs)
//
// # Usage
//
//	db := storage.Open(ctx, storage.Options{Path: path})
//	if db == nil {
//	    return // run without history
//	}
//	svc := session.NewService(db, session.WithLogger(logger))
//
//	slug, err := svc.SaveMessages(ctx, "1", msgs, session.SaveOptions{})
//	forked, err := svc.ForkSession(ctx, "1", msgs[1].ID)
//
// # Slug Collisions
//
// Slug allocation reads the existing slugs and writes the record in two
// separate transactions. When a concurrent writer claims the same slug
// first, SaveMessages re-derives a slug seeded by "<slug>-<unix millis>" and
// retries once; a second failure is reported as ErrPersistFailed.
package session
