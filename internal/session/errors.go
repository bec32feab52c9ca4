// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session operations of chatstore.
package session

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrInvalidTimestamp is returned before any storage access when a
	// caller-supplied timestamp is not ISO-8601.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrEmptyDescription rejects blank descriptions on rename.
	ErrEmptyDescription = errors.New("description must not be empty")

	// ErrMessageNotFound means a fork point is not in the session.
	ErrMessageNotFound = errors.New("message not found")

	// ErrSessionNotFound means no session has the given id or slug.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPersistFailed means the write did not commit, including after the
	// single slug-collision retry.
	ErrPersistFailed = errors.New("failed to persist session")

	// ErrMissingID rejects saves without a primary key.
	ErrMissingID = errors.New("session id must not be empty")
)

func persistErr(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrPersistFailed)
}

// NotFound reports that idOrSlug resolved to no session. The error matches
// ErrSessionNotFound.
func NotFound(idOrSlug string) error {
	return errors.WithHint(
		errors.Wrapf(ErrSessionNotFound, "%q", idOrSlug),
		"run 'chatstore list' to see stored sessions",
	)
}
