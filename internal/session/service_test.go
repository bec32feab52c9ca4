// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session operations of chatstore.
package session

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chatstore/internal/export"
	"github.com/jeranaias/chatstore/internal/model"
	"github.com/jeranaias/chatstore/internal/slug"
	"github.com/jeranaias/chatstore/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

var testNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func quietLogger() *log.Logger {
	l := log.New(io.Discard)
	l.SetLevel(log.FatalLevel)
	return l
}

func openStore(t *testing.T, backend storage.Backend) *storage.DB {
	t.Helper()
	db, err := storage.OpenStrict(context.Background(), storage.Options{
		Path:    filepath.Join(t.TempDir(), "chats.db"),
		Backend: backend,
		Logger:  quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestService(store storage.RecordStore) *Service {
	return NewService(store,
		WithAllocator(&slug.Allocator{
			Random: func() string { return "deadbeef" },
			Now:    func() time.Time { return testNow },
		}),
		WithClock(func() time.Time { return testNow }),
		WithLogger(quietLogger()),
	)
}

func msgs(ids ...string) []model.Message {
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Message{ID: id, Role: model.RoleUser, Content: "message " + id})
	}
	return out
}

func strPtr(s string) *string { return &s }

// forEachBackend runs fn against a service over a fresh store of every backend.
func forEachBackend(t *testing.T, fn func(t *testing.T, svc *Service, db *storage.DB)) {
	for _, backend := range []storage.Backend{storage.BackendSQLite, storage.BackendBolt} {
		t.Run(string(backend), func(t *testing.T) {
			db := openStore(t, backend)
			fn(t, newTestService(db), db)
		})
	}
}

// countingStore records how many calls reach the underlying store.
type countingStore struct {
	storage.RecordStore
	calls atomic.Int32
}

func (c *countingStore) GetByID(ctx context.Context, id string) (*model.ChatRecord, error) {
	c.calls.Add(1)
	return c.RecordStore.GetByID(ctx, id)
}

func (c *countingStore) Put(ctx context.Context, rec model.ChatRecord) error {
	c.calls.Add(1)
	return c.RecordStore.Put(ctx, rec)
}

func (c *countingStore) ScanSlugs(ctx context.Context) ([]string, error) {
	c.calls.Add(1)
	return c.RecordStore.ScanSlugs(ctx)
}

// staleScanStore hides every stored slug from the first ScanSlugs call,
// reproducing a writer that read the slug list before a concurrent commit.
type staleScanStore struct {
	storage.RecordStore
	scans atomic.Int32
}

func (s *staleScanStore) ScanSlugs(ctx context.Context) ([]string, error) {
	if s.scans.Add(1) == 1 {
		return nil, nil
	}
	return s.RecordStore.ScanSlugs(ctx)
}

// collidingStore fails every Put with a constraint violation.
type collidingStore struct {
	storage.RecordStore
	puts atomic.Int32
}

func (c *collidingStore) Put(ctx context.Context, rec model.ChatRecord) error {
	c.puts.Add(1)
	return errors.Mark(errors.Newf("url id %q taken", rec.URLID), storage.ErrConstraintViolation)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveMessages_Scenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()

		s1, err := svc.SaveMessages(ctx, "1", msgs("a", "b", "c"), SaveOptions{})
		require.NoError(t, err)
		assert.Equal(t, "1", s1)

		s2, err := svc.SaveMessages(ctx, "2", msgs("x"), SaveOptions{SlugSeed: "1"})
		require.NoError(t, err)
		assert.Equal(t, "1-2", s2)

		forked, err := svc.ForkSession(ctx, "1", "b")
		require.NoError(t, err)

		rec, err := svc.GetSession(ctx, forked)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, msgs("a", "b"), rec.Messages)
		assert.Equal(t, "Forked chat", rec.Description)
		assert.Equal(t, "3", rec.ID)
	})
}

func TestSaveMessages_RoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		messages := msgs("a", "b")
		messages[1].Extra = map[string]json.RawMessage{"model": json.RawMessage(`"local"`)}

		got, err := svc.SaveMessages(ctx, "9", messages, SaveOptions{
			URLID:       "my-chat",
			Description: strPtr("My chat"),
			Timestamp:   "2024-04-01T08:00:00Z",
			Metadata:    map[string]string{"gitUrl": "https://example.com/r.git"},
		})
		require.NoError(t, err)
		assert.Equal(t, "my-chat", got)

		rec, err := svc.GetSession(ctx, "my-chat")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, model.ChatRecord{
			ID:          "9",
			URLID:       "my-chat",
			Description: "My chat",
			Messages:    messages,
			Timestamp:   "2024-04-01T08:00:00Z",
			Metadata:    map[string]string{"gitUrl": "https://example.com/r.git"},
		}, *rec)
	})
}

func TestSaveMessages_PreservesOpaqueMessageFields(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		payload := `[` +
			`{"id":"a","role":"user","content":"hi","createdAt":"2024-05-01T10:00:00Z","parts":[{"type":"text","text":"hi"}]},` +
			`{"id":"b","role":"assistant","content":[{"type":"text","text":"hello"}],"annotations":[{"type":"usage","tokens":3}]}` +
			`]`
		var messages []model.Message
		require.NoError(t, json.Unmarshal([]byte(payload), &messages))

		_, err := svc.SaveMessages(ctx, "1", messages, SaveOptions{})
		require.NoError(t, err)

		rec, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		got, err := json.Marshal(rec.Messages)
		require.NoError(t, err)
		assert.JSONEq(t, payload, string(got))

		forked, err := svc.ForkSession(ctx, "1", "a")
		require.NoError(t, err)
		fork, err := svc.GetSession(ctx, forked)
		require.NoError(t, err)
		require.NotNil(t, fork)
		require.Len(t, fork.Messages, 1)
		assert.JSONEq(t, `[{"type":"text","text":"hi"}]`, string(fork.Messages[0].Extra["parts"]))
	})
}

func TestSaveMessages_DefaultTimestamp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{})
		require.NoError(t, err)

		rec, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "2024-05-01T10:00:00.000Z", rec.Timestamp)
		assert.Equal(t, "", rec.Description)
	})
}

func TestSaveMessages_ReplaceKeepsSlug(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		first, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{
			SlugSeed: "hello world",
			Metadata: map[string]string{"k": "v"},
		})
		require.NoError(t, err)
		assert.Equal(t, "hello-world", first)

		second, err := svc.SaveMessages(ctx, "1", msgs("a", "b", "c"), SaveOptions{Description: strPtr("Hi")})
		require.NoError(t, err)
		assert.Equal(t, first, second)

		all, err := svc.GetAllSessions(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Len(t, all[0].Messages, 3)
		assert.Equal(t, "Hi", all[0].Description)
		assert.Equal(t, map[string]string{"k": "v"}, all[0].Metadata)
	})
}

func TestSaveMessages_SlugProbing(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		var got []string
		for _, id := range []string{"1", "2", "3"} {
			s, err := svc.SaveMessages(ctx, id, msgs("a"), SaveOptions{SlugSeed: "abc"})
			require.NoError(t, err)
			got = append(got, s)
		}
		assert.Equal(t, []string{"abc", "abc-2", "abc-3"}, got)
	})
}

func TestSaveMessages_InvalidTimestampTouchesNothing(t *testing.T) {
	db := openStore(t, storage.BackendSQLite)
	store := &countingStore{RecordStore: db}
	svc := newTestService(store)

	_, err := svc.SaveMessages(context.Background(), "1", msgs("a"), SaveOptions{Timestamp: "last tuesday"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTimestamp), "got %v", err)
	assert.Equal(t, int32(0), store.calls.Load())

	all, err := db.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveMessages_MissingID(t *testing.T) {
	svc := newTestService(openStore(t, storage.BackendSQLite))
	_, err := svc.SaveMessages(context.Background(), "", msgs("a"), SaveOptions{})
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestSaveMessages_CollisionRetry(t *testing.T) {
	for _, backend := range []storage.Backend{storage.BackendSQLite, storage.BackendBolt} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			db := openStore(t, backend)
			require.NoError(t, db.Put(ctx, model.ChatRecord{ID: "1", URLID: "abc", Messages: msgs("a"), Timestamp: "2024-01-01"}))

			svc := newTestService(&staleScanStore{RecordStore: db})
			got, err := svc.SaveMessages(ctx, "2", msgs("b"), SaveOptions{SlugSeed: "abc"})
			require.NoError(t, err)
			assert.Equal(t, slug.WithTimestamp("abc", testNow), got)

			rec, err := db.GetBySlug(ctx, got)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, "2", rec.ID)

			// The original owner is untouched.
			orig, err := db.GetBySlug(ctx, "abc")
			require.NoError(t, err)
			require.NotNil(t, orig)
			assert.Equal(t, "1", orig.ID)
		})
	}
}

func TestSaveMessages_SecondCollisionFails(t *testing.T) {
	store := &collidingStore{RecordStore: openStore(t, storage.BackendSQLite)}
	svc := newTestService(store)

	_, err := svc.SaveMessages(context.Background(), "1", msgs("a"), SaveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPersistFailed), "got %v", err)
	assert.Equal(t, int32(2), store.puts.Load(), "retries exactly once")
}

// =============================================================================
// READ / DELETE
// =============================================================================

func TestGetSession_ByIDThenSlug(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{URLID: "2"})
		require.NoError(t, err)
		_, err = svc.SaveMessages(ctx, "2", msgs("b"), SaveOptions{URLID: "two"})
		require.NoError(t, err)

		// "2" is both an id and a slug; the id wins.
		rec, err := svc.GetSession(ctx, "2")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "2", rec.ID)

		rec, err = svc.GetSession(ctx, "two")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "2", rec.ID)

		rec, err = svc.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

func TestGetAllSessions_NewestFirst(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		for id, ts := range map[string]string{
			"1": "2024-01-01T00:00:00Z",
			"2": "2024-03-01T00:00:00Z",
			"3": "2024-02-01T00:00:00Z",
			"4": "2024-03-01T00:00:00Z",
		} {
			_, err := svc.SaveMessages(ctx, id, msgs("a"), SaveOptions{Timestamp: ts})
			require.NoError(t, err)
		}

		all, err := svc.GetAllSessions(ctx)
		require.NoError(t, err)
		var ids []string
		for _, rec := range all {
			ids = append(ids, rec.ID)
		}
		assert.Equal(t, []string{"2", "4", "3", "1"}, ids)
	})
}

func TestDeleteSession_Idempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{})
		require.NoError(t, err)

		require.NoError(t, svc.DeleteSession(ctx, "1"))
		require.NoError(t, svc.DeleteSession(ctx, "1"))

		rec, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})
}

// =============================================================================
// FORK / DUPLICATE / CREATE
// =============================================================================

func TestForkSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a", "b", "c", "d"), SaveOptions{
			Description: strPtr("Planning"),
			Metadata:    map[string]string{"gitBranch": "main"},
		})
		require.NoError(t, err)

		forked, err := svc.ForkSession(ctx, "1", "c")
		require.NoError(t, err)

		rec, err := svc.GetSession(ctx, forked)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, msgs("a", "b", "c"), rec.Messages)
		assert.Equal(t, "Planning (fork)", rec.Description)
		assert.Equal(t, map[string]string{"gitBranch": "main"}, rec.Metadata)

		// The original is unchanged.
		orig, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		assert.Len(t, orig.Messages, 4)
	})
}

func TestForkSession_Errors(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{})
		require.NoError(t, err)

		_, err = svc.ForkSession(ctx, "1", "zzz")
		assert.True(t, errors.Is(err, ErrMessageNotFound), "got %v", err)

		_, err = svc.ForkSession(ctx, "nope", "a")
		assert.True(t, errors.Is(err, ErrSessionNotFound), "got %v", err)

		all, err := svc.GetAllSessions(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1, "failed forks write nothing")
	})
}

func TestDuplicateSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a", "b"), SaveOptions{Description: strPtr("Notes")})
		require.NoError(t, err)
		_, err = svc.SaveMessages(ctx, "2", msgs("c"), SaveOptions{})
		require.NoError(t, err)

		dup, err := svc.DuplicateSession(ctx, "1")
		require.NoError(t, err)
		rec, err := svc.GetSession(ctx, dup)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, msgs("a", "b"), rec.Messages)
		assert.Equal(t, "Notes (copy)", rec.Description)
		assert.NotEqual(t, "1", rec.ID)

		dup2, err := svc.DuplicateSession(ctx, "2")
		require.NoError(t, err)
		rec, err = svc.GetSession(ctx, dup2)
		require.NoError(t, err)
		assert.Equal(t, "Chat (copy)", rec.Description)

		_, err = svc.DuplicateSession(ctx, "404")
		assert.True(t, errors.Is(err, ErrSessionNotFound))
	})
}

func TestDuplicateSession_CopiesByValue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{})
		require.NoError(t, err)
		dup, err := svc.DuplicateSession(ctx, "1")
		require.NoError(t, err)

		// Rewriting the original leaves the copy alone.
		_, err = svc.SaveMessages(ctx, "1", msgs("z"), SaveOptions{})
		require.NoError(t, err)

		rec, err := svc.GetSession(ctx, dup)
		require.NoError(t, err)
		assert.Equal(t, msgs("a"), rec.Messages)
	})
}

func TestCreateFromMessages(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, db *storage.DB) {
		ctx := context.Background()
		require.NoError(t, db.Put(ctx, model.ChatRecord{ID: "legacy-key", Timestamp: "2024-01-01"}))
		require.NoError(t, db.Put(ctx, model.ChatRecord{ID: "41", Timestamp: "2024-01-01"}))

		got, err := svc.CreateFromMessages(ctx, "Fresh", msgs("a"), nil)
		require.NoError(t, err)
		assert.Equal(t, "42", got, "slug is seeded by the new numeric id")

		rec, err := svc.GetSession(ctx, got)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "42", rec.ID)
		assert.Equal(t, "Fresh", rec.Description)
	})
}

// =============================================================================
// UPDATES
// =============================================================================

func TestUpdateDescription(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a", "b"), SaveOptions{
			URLID:     "keep-me",
			Timestamp: "2024-02-02T02:02:02Z",
			Metadata:  map[string]string{"k": "v"},
		})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateDescription(ctx, "1", "  Renamed  "))

		rec, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "  Renamed  ", rec.Description, "stored as given")
		assert.Equal(t, "keep-me", rec.URLID)
		assert.Equal(t, "2024-02-02T02:02:02Z", rec.Timestamp)
		assert.Equal(t, msgs("a", "b"), rec.Messages)
		assert.Equal(t, map[string]string{"k": "v"}, rec.Metadata)
	})
}

func TestUpdateDescription_Errors(t *testing.T) {
	db := openStore(t, storage.BackendSQLite)
	store := &countingStore{RecordStore: db}
	svc := newTestService(store)
	ctx := context.Background()

	for _, blank := range []string{"", "   ", "\t\n"} {
		err := svc.UpdateDescription(ctx, "1", blank)
		assert.True(t, errors.Is(err, ErrEmptyDescription), "%q: got %v", blank, err)
	}
	assert.Equal(t, int32(0), store.calls.Load())

	err := svc.UpdateDescription(ctx, "missing", "Name")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}

func TestUpdateMetadata(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{Metadata: map[string]string{"old": "1"}})
		require.NoError(t, err)

		require.NoError(t, svc.UpdateMetadata(ctx, "1", map[string]string{"new": "2"}))
		rec, err := svc.GetSession(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"new": "2"}, rec.Metadata)

		assert.True(t, errors.Is(svc.UpdateMetadata(ctx, "nope", nil), ErrSessionNotFound))
	})
}

// =============================================================================
// SNAPSHOTS / IMPORT
// =============================================================================

func TestSnapshots(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a", "b"), SaveOptions{})
		require.NoError(t, err)

		data := json.RawMessage(`{"files":["main.go"]}`)
		require.NoError(t, svc.SetSnapshot(ctx, "1", "b", data))

		snap, err := svc.GetSnapshot(ctx, "1")
		require.NoError(t, err)
		require.NotNil(t, snap)
		assert.Equal(t, "b", snap.MessageID)
		assert.Equal(t, "2024-05-01T10:00:00.000Z", snap.UpdatedAt)

		assert.True(t, errors.Is(svc.SetSnapshot(ctx, "1", "zzz", data), ErrMessageNotFound))
		assert.True(t, errors.Is(svc.SetSnapshot(ctx, "nope", "", data), ErrSessionNotFound))

		require.NoError(t, svc.DeleteSession(ctx, "1"))
		snap, err = svc.GetSnapshot(ctx, "1")
		require.NoError(t, err)
		assert.Nil(t, snap, "snapshot is deleted with its session")
	})
}

func TestImportSession(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, _ *storage.DB) {
		ctx := context.Background()
		_, err := svc.SaveMessages(ctx, "1", msgs("a"), SaveOptions{URLID: "shared"})
		require.NoError(t, err)

		doc := &export.Document{
			ID:          "1",
			URLID:       "shared",
			Description: "Imported",
			Messages:    msgs("x", "y"),
			Timestamp:   "2023-06-01T00:00:00Z",
			Metadata:    map[string]string{"source": "backup"},
		}
		got, err := svc.ImportSession(ctx, doc)
		require.NoError(t, err)
		assert.Equal(t, "shared-2", got)

		rec, err := svc.GetSession(ctx, got)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "2", rec.ID, "imports never overwrite an existing id")
		assert.Equal(t, msgs("x", "y"), rec.Messages)
		assert.Equal(t, "2023-06-01T00:00:00Z", rec.Timestamp)

		_, err = svc.ImportSession(ctx, nil)
		assert.Error(t, err)
	})
}

// =============================================================================
// IDS
// =============================================================================

func TestNumericIDs(t *testing.T) {
	forEachBackend(t, func(t *testing.T, svc *Service, db *storage.DB) {
		ctx := context.Background()
		id, err := svc.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "1", id)

		for _, key := range []string{"3", "abc", "10", "-5"} {
			require.NoError(t, db.Put(ctx, model.ChatRecord{ID: key, Timestamp: "2024-01-01"}))
		}
		id, err = svc.NextID(ctx)
		require.NoError(t, err)
		assert.Equal(t, "11", id)
	})
}

func TestUUIDIDs(t *testing.T) {
	svc := NewService(openStore(t, storage.BackendBolt), WithIDSource(UUIDIDs{}), WithLogger(quietLogger()))
	a, err := svc.NextID(context.Background())
	require.NoError(t, err)
	b, err := svc.NextID(context.Background())
	require.NoError(t, err)
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestParseIDScheme(t *testing.T) {
	ids, ok := ParseIDScheme("")
	assert.True(t, ok)
	assert.IsType(t, NumericIDs{}, ids)

	ids, ok = ParseIDScheme("uuid")
	assert.True(t, ok)
	assert.IsType(t, UUIDIDs{}, ids)

	_, ok = ParseIDScheme("snowflake")
	assert.False(t, ok)
}
