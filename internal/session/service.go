// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the chat session operations of chatstore.
package session

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"

	"github.com/jeranaias/chatstore/internal/export"
	"github.com/jeranaias/chatstore/internal/model"
	"github.com/jeranaias/chatstore/internal/slug"
	"github.com/jeranaias/chatstore/internal/storage"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service implements the session operations over an injected record store.
type Service struct {
	store  storage.RecordStore
	slugs  *slug.Allocator
	ids    IDSource
	now    func() time.Time
	logger *log.Logger
}

// ServiceOption is a functional option for configuring Service.
type ServiceOption func(*Service)

// WithAllocator sets the slug allocator.
func WithAllocator(a *slug.Allocator) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.slugs = a
		}
	}
}

// WithIDSource sets the primary key scheme.
func WithIDSource(ids IDSource) ServiceOption {
	return func(s *Service) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithClock sets the time source used for default timestamps and retry seeds.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a Service over store. Defaults: slug.New(), NumericIDs,
// time.Now and log.Default().
func NewService(store storage.RecordStore, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		slugs:  slug.New(),
		ids:    NumericIDs{},
		now:    time.Now,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveOptions are the optional inputs of SaveMessages.
type SaveOptions struct {
	// URLID is used verbatim when set.
	URLID string

	// SlugSeed seeds a newly allocated slug. Default: the session id.
	SlugSeed string

	// Description is stored as given; nil stores an empty description.
	Description *string

	// Timestamp must be ISO-8601. Default: now.
	Timestamp string

	// Metadata replaces the stored metadata. Nil keeps what is stored.
	Metadata map[string]string
}

// =============================================================================
// READS
// =============================================================================

// GetAllSessions returns every session, newest first. Ties are broken by id.
func (s *Service) GetAllSessions(ctx context.Context) ([]model.ChatRecord, error) {
	all, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	sort.SliceStable(all, func(i, j int) bool {
		ti, tj := all[i].Time(), all[j].Time()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

// GetSession resolves idOrSlug as a primary key first, then as a slug.
// It returns nil, nil when neither matches.
func (s *Service) GetSession(ctx context.Context, idOrSlug string) (*model.ChatRecord, error) {
	if idOrSlug == "" {
		return nil, nil
	}
	rec, err := s.store.GetByID(ctx, idOrSlug)
	if err != nil {
		return nil, errors.Wrapf(err, "get session %q", idOrSlug)
	}
	if rec != nil {
		return rec, nil
	}
	rec, err = s.store.GetBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, errors.Wrapf(err, "get session %q", idOrSlug)
	}
	return rec, nil
}

// mustGet is GetSession with absence reported as ErrSessionNotFound.
func (s *Service) mustGet(ctx context.Context, idOrSlug string) (*model.ChatRecord, error) {
	rec, err := s.GetSession(ctx, idOrSlug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NotFound(idOrSlug)
	}
	return rec, nil
}

// =============================================================================
// WRITES
// =============================================================================

// SaveMessages writes the session id with the given messages, replacing any
// stored messages, description and timestamp. It returns the slug the
// session is stored under.
func (s *Service) SaveMessages(ctx context.Context, id string, messages []model.Message, opts SaveOptions) (string, error) {
	if id == "" {
		return "", ErrMissingID
	}

	timestamp := opts.Timestamp
	if timestamp != "" {
		if _, err := model.ParseTimestamp(timestamp); err != nil {
			return "", errors.WithHint(
				errors.Wrapf(ErrInvalidTimestamp, "%q", timestamp),
				"timestamps are ISO-8601, e.g. 2024-05-01T10:00:00Z",
			)
		}
	} else {
		timestamp = model.FormatTimestamp(s.now())
	}

	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", persistErr(err, "load session %q", id)
	}

	rec := model.ChatRecord{
		ID:        id,
		Messages:  model.CloneMessages(messages),
		Timestamp: timestamp,
		Metadata:  model.CloneMetadata(opts.Metadata),
	}
	if opts.Description != nil {
		rec.Description = *opts.Description
	}
	if opts.Metadata == nil && existing != nil {
		rec.Metadata = model.CloneMetadata(existing.Metadata)
	}

	switch {
	case opts.URLID != "":
		rec.URLID = opts.URLID
	case existing != nil && existing.URLID != "":
		rec.URLID = existing.URLID
	default:
		seed := opts.SlugSeed
		if seed == "" {
			seed = id
		}
		if rec.URLID, err = s.allocate(ctx, seed); err != nil {
			return "", persistErr(err, "allocate slug for session %q", id)
		}
	}

	err = s.store.Put(ctx, rec)
	if err == nil {
		s.logger.Debug("saved session", "id", id, "slug", rec.URLID, "messages", len(rec.Messages))
		return rec.URLID, nil
	}
	if !errors.Is(err, storage.ErrConstraintViolation) {
		return "", persistErr(err, "save session %q", id)
	}

	// Another writer claimed the slug between the scan and the write.
	taken := rec.URLID
	if rec.URLID, err = s.allocate(ctx, slug.WithTimestamp(taken, s.now())); err != nil {
		return "", persistErr(err, "allocate slug for session %q", id)
	}
	s.logger.Warn("slug collision, retrying", "id", id, "taken", taken, "slug", rec.URLID)

	if err := s.store.Put(ctx, rec); err != nil {
		return "", persistErr(err, "save session %q after slug collision", id)
	}
	return rec.URLID, nil
}

// allocate mints a slug against the slugs currently stored.
func (s *Service) allocate(ctx context.Context, seed string) (string, error) {
	existing, err := s.store.ScanSlugs(ctx)
	if err != nil {
		return "", err
	}
	return s.slugs.Allocate(seed, existing), nil
}

// DeleteSession removes a session and its snapshot. Deleting an unknown id succeeds.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.store.DeleteByID(ctx, id); err != nil {
		return errors.Wrapf(err, "delete session %q", id)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// NextID returns a fresh primary key from the configured IDSource.
func (s *Service) NextID(ctx context.Context) (string, error) {
	id, err := s.ids.NextID(ctx, s.store)
	if err != nil {
		return "", errors.Wrap(err, "allocate session id")
	}
	return id, nil
}

// CreateFromMessages stores messages as a new session and returns its slug.
func (s *Service) CreateFromMessages(ctx context.Context, description string, messages []model.Message, metadata map[string]string) (string, error) {
	id, err := s.NextID(ctx)
	if err != nil {
		return "", err
	}
	return s.SaveMessages(ctx, id, messages, SaveOptions{
		Description: &description,
		Metadata:    metadata,
	})
}

// ForkSession creates a new session holding the messages of idOrSlug up to
// and including messageID. It returns the new slug.
func (s *Service) ForkSession(ctx context.Context, idOrSlug, messageID string) (string, error) {
	rec, err := s.mustGet(ctx, idOrSlug)
	if err != nil {
		return "", err
	}

	idx := model.IndexOfMessage(rec.Messages, messageID)
	if idx < 0 {
		return "", errors.Wrapf(ErrMessageNotFound, "%q in session %q", messageID, rec.ID)
	}

	description := "Forked chat"
	if rec.Description != "" {
		description = rec.Description + " (fork)"
	}
	newSlug, err := s.CreateFromMessages(ctx, description, rec.Messages[:idx+1], rec.Metadata)
	if err != nil {
		return "", err
	}
	s.logger.Info("forked session", "from", rec.ID, "at", messageID, "slug", newSlug)
	return newSlug, nil
}

// DuplicateSession copies every message of idOrSlug into a new session and
// returns the new slug.
func (s *Service) DuplicateSession(ctx context.Context, idOrSlug string) (string, error) {
	rec, err := s.mustGet(ctx, idOrSlug)
	if err != nil {
		return "", err
	}

	description := "Chat (copy)"
	if rec.Description != "" {
		description = rec.Description + " (copy)"
	}
	newSlug, err := s.CreateFromMessages(ctx, description, rec.Messages, rec.Metadata)
	if err != nil {
		return "", err
	}
	s.logger.Info("duplicated session", "from", rec.ID, "slug", newSlug)
	return newSlug, nil
}

// UpdateDescription renames a session, keeping its messages, slug,
// timestamp and metadata. The description is stored as given; one that is
// blank after trimming is rejected.
func (s *Service) UpdateDescription(ctx context.Context, id, description string) error {
	if strings.TrimSpace(description) == "" {
		return ErrEmptyDescription
	}
	rec, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	rec.Description = description
	if err := s.store.Put(ctx, *rec); err != nil {
		return persistErr(err, "rename session %q", rec.ID)
	}
	return nil
}

// UpdateMetadata replaces a session's metadata. Nil clears it.
func (s *Service) UpdateMetadata(ctx context.Context, id string, metadata map[string]string) error {
	rec, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	rec.Metadata = model.CloneMetadata(metadata)
	if err := s.store.Put(ctx, *rec); err != nil {
		return persistErr(err, "update metadata of session %q", rec.ID)
	}
	return nil
}

// ImportSession stores an exported document as a new session. The
// document's slug seeds the new slug; its id is not reused.
func (s *Service) ImportSession(ctx context.Context, doc *export.Document) (string, error) {
	if doc == nil {
		return "", errors.New("nothing to import")
	}
	id, err := s.NextID(ctx)
	if err != nil {
		return "", err
	}
	description := doc.Description
	newSlug, err := s.SaveMessages(ctx, id, doc.Messages, SaveOptions{
		SlugSeed:    doc.URLID,
		Description: &description,
		Timestamp:   doc.Timestamp,
		Metadata:    doc.Metadata,
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("imported session", "id", id, "slug", newSlug, "source", doc.ID)
	return newSlug, nil
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// SetSnapshot stores data as the snapshot of session id, taken at messageID.
// An empty messageID is allowed.
func (s *Service) SetSnapshot(ctx context.Context, id, messageID string, data json.RawMessage) error {
	rec, err := s.mustGet(ctx, id)
	if err != nil {
		return err
	}
	if messageID != "" && model.IndexOfMessage(rec.Messages, messageID) < 0 {
		return errors.Wrapf(ErrMessageNotFound, "%q in session %q", messageID, rec.ID)
	}
	snap := model.Snapshot{
		ChatID:    rec.ID,
		MessageID: messageID,
		Data:      data,
		UpdatedAt: model.FormatTimestamp(s.now()),
	}
	if err := s.store.PutSnapshot(ctx, snap); err != nil {
		return persistErr(err, "save snapshot of session %q", rec.ID)
	}
	return nil
}

// GetSnapshot returns the snapshot of session id, or nil when it has none.
func (s *Service) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	snap, err := s.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get snapshot of session %q", id)
	}
	return snap, nil
}

// DeleteSnapshot removes the snapshot of session id.
func (s *Service) DeleteSnapshot(ctx context.Context, id string) error {
	if err := s.store.DeleteSnapshot(ctx, id); err != nil {
		return errors.Wrapf(err, "delete snapshot of session %q", id)
	}
	return nil
}
