// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"github.com/cockroachdb/errors"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStoreUnavailable means the host offers no usable embedded storage.
	// Callers should run without history rather than fail.
	ErrStoreUnavailable = errors.New("embedded store unavailable")

	// ErrSchemaVersionConflict is raised while opening a store written by a
	// newer schema. It is recovered internally and never returned by Open.
	ErrSchemaVersionConflict = errors.New("schema version conflict")

	// ErrConstraintViolation means a Put collided with another record's slug.
	ErrConstraintViolation = errors.New("unique constraint violation")

	// ErrStore marks any other transaction failure.
	ErrStore = errors.New("store transaction failed")
)

// storeErr wraps a backend failure and marks it as ErrStore.
func storeErr(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrStore)
}

// constraintErr reports a slug collision for the given record.
func constraintErr(cause error, id, urlID string) error {
	if cause == nil {
		cause = errors.New("duplicate key in url id index")
	}
	return errors.Mark(
		errors.Wrapf(cause, "url id %q is already taken (writing chat %q)", urlID, id),
		ErrConstraintViolation,
	)
}

// unavailableErr wraps an open failure and marks it as ErrStoreUnavailable.
func unavailableErr(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrStoreUnavailable)
}
