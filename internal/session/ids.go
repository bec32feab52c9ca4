// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session operations of chatstore.
package session

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/jeranaias/chatstore/internal/storage"
)

// IDSource mints primary keys for new sessions.
type IDSource interface {
	NextID(ctx context.Context, store storage.RecordStore) (string, error)
}

// NumericIDs issues decimal counters: one more than the largest numeric
// key in the store. Keys that are not numbers count as 0.
type NumericIDs struct{}

// NextID scans every key in the store.
func (NumericIDs) NextID(ctx context.Context, store storage.RecordStore) (string, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return "", err
	}
	var highest int64
	for _, k := range keys {
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return strconv.FormatInt(highest+1, 10), nil
}

// UUIDIDs issues random v4 uuids without reading the store.
type UUIDIDs struct{}

// NextID returns a new uuid.
func (UUIDIDs) NextID(context.Context, storage.RecordStore) (string, error) {
	return uuid.NewString(), nil
}

// ParseIDScheme maps a config name to an IDSource.
func ParseIDScheme(name string) (IDSource, bool) {
	switch name {
	case "", "numeric":
		return NumericIDs{}, true
	case "uuid":
		return UUIDIDs{}, true
	}
	return nil, false
}
