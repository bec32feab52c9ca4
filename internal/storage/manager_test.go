// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

// =============================================================================
// OPEN TESTS
// =============================================================================

func TestOpen_CreatesFreshStore(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "dir", "chats.db")
			db := Open(context.Background(), Options{Path: path, Backend: backend, Logger: quietLogger()})
			require.NotNil(t, db)
			defer db.Close()

			assert.Equal(t, StateReady, db.State())
			assert.Equal(t, SchemaVersion, db.Version())
			assert.Equal(t, backend, db.Backend())
			assert.Equal(t, path, db.Path())
			assert.FileExists(t, path)
		})
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			opts := Options{Path: filepath.Join(t.TempDir(), "chats.db"), Backend: backend, Logger: quietLogger()}

			db := Open(ctx, opts)
			require.NotNil(t, db)
			require.NoError(t, db.Put(ctx, testRecord("1", "kept", "a")))
			require.NoError(t, db.Close())

			db = Open(ctx, opts)
			require.NotNil(t, db)
			defer db.Close()

			got, err := db.GetBySlug(ctx, "kept")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "1", got.ID)
		})
	}
}

func TestOpen_Unavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	tests := []struct {
		name string
		opts Options
	}{
		{name: "empty path", opts: Options{}},
		{name: "unknown backend", opts: Options{Path: filepath.Join(t.TempDir(), "c.db"), Backend: "leveldb"}},
		{name: "parent is a file", opts: Options{Path: filepath.Join(blocker, "sub", "c.db")}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.opts.Logger = quietLogger()

			assert.Nil(t, Open(context.Background(), tc.opts))

			db, err := OpenStrict(context.Background(), tc.opts)
			assert.Nil(t, db)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStoreUnavailable), "got %v", err)
		})
	}
}

func TestOpen_CorruptFileFails(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chats.db")
			require.NoError(t, os.WriteFile(path, []byte("this is not a database file at all, not even close"), 0600))

			db, err := OpenStrict(context.Background(), Options{Path: path, Backend: backend, Logger: quietLogger()})
			assert.Nil(t, db)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStoreUnavailable))
			assert.False(t, errors.Is(err, ErrSchemaVersionConflict))
		})
	}
}

// =============================================================================
// VERSION CONFLICT RECOVERY
// =============================================================================

// writeFutureVersion creates a store that claims a schema newer than this build.
func writeFutureVersion(t *testing.T, backend Backend, path string) {
	t.Helper()
	switch backend {
	case BackendSQLite:
		db, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		_, err = db.Exec("CREATE TABLE chats (id TEXT PRIMARY KEY, future_column BLOB)")
		require.NoError(t, err)
		_, err = db.Exec("INSERT INTO chats (id) VALUES ('old')")
		require.NoError(t, err)
		_, err = db.Exec("PRAGMA user_version = 99")
		require.NoError(t, err)
		require.NoError(t, db.Close())
	case BackendBolt:
		db, err := bolt.Open(path, 0600, nil)
		require.NoError(t, err)
		require.NoError(t, db.Update(func(tx *bolt.Tx) error {
			meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
			if err != nil {
				return err
			}
			chats, err := tx.CreateBucketIfNotExists([]byte(bucketChats))
			if err != nil {
				return err
			}
			if err := chats.Put([]byte("old"), []byte(`{"id":"old"}`)); err != nil {
				return err
			}
			return meta.Put([]byte(metaSchemaVersion), []byte("99"))
		}))
		require.NoError(t, db.Close())
	}
}

func TestOpen_VersionConflictBackup(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()
			path := filepath.Join(dir, "chats.db")
			writeFutureVersion(t, backend, path)

			db := Open(ctx, Options{Path: path, Backend: backend, Recovery: RecoveryBackup, Logger: quietLogger()})
			require.NotNil(t, db)
			defer db.Close()

			assert.Equal(t, StateReady, db.State())
			assert.Equal(t, SchemaVersion, db.Version())

			all, err := db.GetAll(ctx)
			require.NoError(t, err)
			assert.Empty(t, all, "recovery discards previous history")

			backups, err := filepath.Glob(path + ".corrupt-*")
			require.NoError(t, err)
			assert.Len(t, backups, 1)

			// The recreated store is fully usable.
			require.NoError(t, db.Put(ctx, testRecord("1", "fresh", "a")))
		})
	}
}

func TestOpen_VersionConflictRecreate(t *testing.T) {
	for _, backend := range backends {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "chats.db")
			writeFutureVersion(t, backend, path)

			db := Open(ctx, Options{Path: path, Backend: backend, Recovery: RecoveryRecreate, Logger: quietLogger()})
			require.NotNil(t, db)
			defer db.Close()

			got, err := db.GetByID(ctx, "old")
			require.NoError(t, err)
			assert.Nil(t, got)

			backups, err := filepath.Glob(path + ".corrupt-*")
			require.NoError(t, err)
			assert.Empty(t, backups)
		})
	}
}

// =============================================================================
// MIGRATIONS
// =============================================================================

func TestOpen_MigratesV1Store(t *testing.T) {
	t.Run(string(BackendSQLite), func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "chats.db")

		raw, err := sql.Open("sqlite", path)
		require.NoError(t, err)
		for _, stmt := range migrations[0].sqlite {
			_, err := raw.Exec(stmt)
			require.NoError(t, err)
		}
		_, err = raw.Exec(`INSERT INTO chats (id, url_id, description, messages, timestamp)
			VALUES ('1', 'legacy', 'Legacy chat', '[{"id":"a","role":"user","content":"hi"}]', '2023-01-01T00:00:00.000Z')`)
		require.NoError(t, err)
		_, err = raw.Exec("PRAGMA user_version = 1")
		require.NoError(t, err)
		require.NoError(t, raw.Close())

		db := Open(ctx, Options{Path: path, Logger: quietLogger()})
		require.NotNil(t, db)
		defer db.Close()
		assert.Equal(t, SchemaVersion, db.Version())

		got, err := db.GetBySlug(ctx, "legacy")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Legacy chat", got.Description)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "hi", got.Messages[0].Content)

		// v2 collections exist.
		snap, err := db.GetSnapshot(ctx, "1")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})

	t.Run(string(BackendBolt), func(t *testing.T) {
		ctx := context.Background()
		path := filepath.Join(t.TempDir(), "chats.db")

		raw, err := bolt.Open(path, 0600, nil)
		require.NoError(t, err)
		require.NoError(t, raw.Update(func(tx *bolt.Tx) error {
			meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
			if err != nil {
				return err
			}
			chats, err := tx.CreateBucketIfNotExists([]byte(bucketChats))
			if err != nil {
				return err
			}
			index, err := tx.CreateBucketIfNotExists([]byte(bucketURLIndex))
			if err != nil {
				return err
			}
			rec := `{"id":"1","urlId":"legacy","description":"Legacy chat","messages":[{"id":"a","role":"user","content":"hi"}],"timestamp":"2023-01-01T00:00:00.000Z"}`
			if err := chats.Put([]byte("1"), []byte(rec)); err != nil {
				return err
			}
			if err := index.Put([]byte("legacy"), []byte("1")); err != nil {
				return err
			}
			return meta.Put([]byte(metaSchemaVersion), []byte("1"))
		}))
		require.NoError(t, raw.Close())

		db := Open(ctx, Options{Path: path, Backend: BackendBolt, Logger: quietLogger()})
		require.NotNil(t, db)
		defer db.Close()
		assert.Equal(t, SchemaVersion, db.Version())

		got, err := db.GetBySlug(ctx, "legacy")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Legacy chat", got.Description)

		snap, err := db.GetSnapshot(ctx, "1")
		require.NoError(t, err)
		assert.Nil(t, snap)
	})
}

func TestPendingMigrations(t *testing.T) {
	assert.Len(t, pendingMigrations(0), SchemaVersion)
	assert.Len(t, pendingMigrations(1), 1)
	assert.Empty(t, pendingMigrations(SchemaVersion))
}

func TestParseBackend(t *testing.T) {
	b, ok := ParseBackend("")
	assert.True(t, ok)
	assert.Equal(t, BackendSQLite, b)

	b, ok = ParseBackend("bbolt")
	assert.True(t, ok)
	assert.Equal(t, BackendBolt, b)

	_, ok = ParseBackend("postgres")
	assert.False(t, ok)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "recovering", StateRecovering.String())
	assert.Equal(t, "unknown", State(42).String())
}
