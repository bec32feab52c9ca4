// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the embedded, transactional chat store for chatstore.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/jeranaias/chatstore/internal/model"
)

// =============================================================================
// BOLT DRIVER
// =============================================================================

// boltDriver opens stores backed by a single bbolt file.
type boltDriver struct {
	path    string
	timeout time.Duration
	db      *bolt.DB
}

func (d *boltDriver) probe(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d.db == nil {
		db, err := bolt.Open(d.path, 0600, &bolt.Options{Timeout: d.timeout})
		if err != nil {
			return 0, errors.Wrap(err, "open database")
		}
		d.db = db
	}

	var version int
	err := d.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket([]byte(bucketMeta))
		if meta == nil {
			return nil
		}
		raw := meta.Get([]byte(metaSchemaVersion))
		if raw == nil {
			return nil
		}
		v, err := strconv.Atoi(string(raw))
		if err != nil {
			return errors.Wrapf(err, "bad schema version %q", raw)
		}
		version = v
		return nil
	})
	return version, err
}

func (d *boltDriver) open(ctx context.Context, version int) (RecordStore, error) {
	if version > SchemaVersion {
		return nil, conflictErr(version)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	steps := pendingMigrations(version)
	if len(steps) > 0 {
		err := d.db.Update(func(tx *bolt.Tx) error {
			meta, err := tx.CreateBucketIfNotExists([]byte(bucketMeta))
			if err != nil {
				return err
			}
			for _, m := range steps {
				for _, name := range m.buckets {
					if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
						return errors.Wrapf(err, "migration %d (%s)", m.version, m.name)
					}
				}
			}
			return meta.Put([]byte(metaSchemaVersion), []byte(strconv.Itoa(SchemaVersion)))
		})
		if err != nil {
			return nil, errors.Wrap(err, "migrate")
		}
	}

	return &boltStore{db: d.db}, nil
}

func (d *boltDriver) destroy(mode RecoveryMode, now time.Time) (string, error) {
	if err := d.close(); err != nil {
		return "", errors.Wrap(err, "close database")
	}
	return discardFile(d.path, mode, now)
}

func (d *boltDriver) close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// =============================================================================
// BOLT STORE
// =============================================================================

// boltStore implements RecordStore over the chats, chats_url_id and
// snapshots buckets. Records are stored as JSON keyed by id; the url id
// bucket maps each slug to the id that owns it.
type boltStore struct {
	db *bolt.DB
}

// slugOnly decodes just the url id of a stored record.
type slugOnly struct {
	URLID string `json:"urlId"`
}

func decodeChat(raw []byte) (model.ChatRecord, error) {
	var rec model.ChatRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, err
	}
	if rec.Messages == nil {
		rec.Messages = []model.Message{}
	}
	return rec, nil
}

// view runs fn in a read transaction, wrapping failures as ErrStore.
func (s *boltStore) view(ctx context.Context, what string, fn func(tx *bolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return storeErr(err, "%s", what)
	}
	if err := s.db.View(fn); err != nil {
		return storeErr(err, "%s", what)
	}
	return nil
}

func (s *boltStore) GetAll(ctx context.Context) ([]model.ChatRecord, error) {
	var out []model.ChatRecord
	err := s.view(ctx, "list chats", func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketChats)).ForEach(func(k, v []byte) error {
			rec, err := decodeChat(v)
			if err != nil {
				return errors.Wrapf(err, "decode chat %q", k)
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) GetByID(ctx context.Context, id string) (*model.ChatRecord, error) {
	var found *model.ChatRecord
	err := s.view(ctx, "get chat "+strconv.Quote(id), func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketChats)).Get([]byte(id))
		if raw == nil {
			return nil
		}
		rec, err := decodeChat(raw)
		if err != nil {
			return err
		}
		found = &rec
		return nil
	})
	return found, err
}

func (s *boltStore) GetBySlug(ctx context.Context, urlID string) (*model.ChatRecord, error) {
	if urlID == "" {
		return nil, nil
	}
	var found *model.ChatRecord
	err := s.view(ctx, "get chat by slug "+strconv.Quote(urlID), func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(bucketURLIndex)).Get([]byte(urlID))
		if id == nil {
			return nil
		}
		raw := tx.Bucket([]byte(bucketChats)).Get(id)
		if raw == nil {
			return nil
		}
		rec, err := decodeChat(raw)
		if err != nil {
			return err
		}
		found = &rec
		return nil
	})
	return found, err
}

func (s *boltStore) Put(ctx context.Context, rec model.ChatRecord) error {
	if err := ctx.Err(); err != nil {
		return storeErr(err, "put chat %q", rec.ID)
	}
	if rec.Messages == nil {
		rec.Messages = []model.Message{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return storeErr(err, "encode chat %q", rec.ID)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		chats := tx.Bucket([]byte(bucketChats))
		index := tx.Bucket([]byte(bucketURLIndex))
		id := []byte(rec.ID)

		if rec.URLID != "" {
			if owner := index.Get([]byte(rec.URLID)); owner != nil && !bytes.Equal(owner, id) {
				return constraintErr(nil, rec.ID, rec.URLID)
			}
		}

		// Drop the index entry of the slug being replaced.
		if prev := chats.Get(id); prev != nil {
			var old slugOnly
			if err := json.Unmarshal(prev, &old); err == nil && old.URLID != "" && old.URLID != rec.URLID {
				if err := index.Delete([]byte(old.URLID)); err != nil {
					return err
				}
			}
		}

		if err := chats.Put(id, data); err != nil {
			return err
		}
		if rec.URLID != "" {
			return index.Put([]byte(rec.URLID), id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			return err
		}
		return storeErr(err, "put chat %q", rec.ID)
	}
	return nil
}

func (s *boltStore) DeleteByID(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return storeErr(err, "delete chat %q", id)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		chats := tx.Bucket([]byte(bucketChats))
		key := []byte(id)

		if prev := chats.Get(key); prev != nil {
			var old slugOnly
			if err := json.Unmarshal(prev, &old); err == nil && old.URLID != "" {
				if err := tx.Bucket([]byte(bucketURLIndex)).Delete([]byte(old.URLID)); err != nil {
					return err
				}
			}
		}
		if err := tx.Bucket([]byte(bucketSnapshots)).Delete(key); err != nil {
			return err
		}
		return chats.Delete(key)
	})
	if err != nil {
		return storeErr(err, "delete chat %q", id)
	}
	return nil
}

func (s *boltStore) ScanSlugs(ctx context.Context) ([]string, error) {
	var out []string
	err := s.view(ctx, "scan slugs", func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketChats)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec slugOnly
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decode chat %q", k)
			}
			if rec.URLID != "" {
				out = append(out, rec.URLID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) Keys(ctx context.Context) ([]string, error) {
	var out []string
	err := s.view(ctx, "list chat ids", func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketChats)).ForEach(func(k, _ []byte) error {
			out = append(out, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) GetSnapshot(ctx context.Context, chatID string) (*model.Snapshot, error) {
	var found *model.Snapshot
	err := s.view(ctx, "get snapshot of chat "+strconv.Quote(chatID), func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(chatID))
		if raw == nil {
			return nil
		}
		var snap model.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return err
		}
		found = &snap
		return nil
	})
	return found, err
}

func (s *boltStore) PutSnapshot(ctx context.Context, snap model.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return storeErr(err, "put snapshot of chat %q", snap.ChatID)
	}
	if len(snap.Data) == 0 {
		snap.Data = json.RawMessage("null")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return storeErr(err, "encode snapshot of chat %q", snap.ChatID)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(snap.ChatID), data)
	})
	if err != nil {
		return storeErr(err, "put snapshot of chat %q", snap.ChatID)
	}
	return nil
}

func (s *boltStore) DeleteSnapshot(ctx context.Context, chatID string) error {
	if err := ctx.Err(); err != nil {
		return storeErr(err, "delete snapshot of chat %q", chatID)
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Delete([]byte(chatID))
	})
	if err != nil {
		return storeErr(err, "delete snapshot of chat %q", chatID)
	}
	return nil
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
