// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package slug derives unique, human-readable url ids for chat records.
//
// Allocation is a pure function of the seed and the slugs already in use.
// The caller reads the existing slugs in one transaction and writes the
// record in another, so two concurrent saves can pick the same slug; the
// loser sees storage.ErrConstraintViolation and must retry.
package slug

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxProbes is how many numbered suffixes are tried before
	// falling back to a timestamp suffix.
	DefaultMaxProbes = 1000

	// DefaultRandomPrefix prefixes slugs synthesized for an empty seed.
	DefaultRandomPrefix = "chat"
)

// Allocator mints slugs. The zero value is usable; nil fields fall back to
// uuid randomness and the wall clock.
type Allocator struct {
	// Random returns the suffix of a synthesized slug.
	Random func() string

	// Now supplies the timestamp of the last-resort suffix.
	Now func() time.Time

	// MaxProbes bounds the numbered-suffix search.
	MaxProbes int

	// RandomPrefix prefixes synthesized slugs.
	RandomPrefix string
}

// New returns an allocator with the default settings.
func New() *Allocator {
	return &Allocator{
		Random:       RandomSuffix,
		Now:          time.Now,
		MaxProbes:    DefaultMaxProbes,
		RandomPrefix: DefaultRandomPrefix,
	}
}

// RandomSuffix returns 8 hex characters taken from a random uuid.
func RandomSuffix() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// Sanitize replaces every rune outside [A-Za-z0-9-_] with '-'. Combining
// marks are runes of their own, so decomposed input keeps its base letter.
func Sanitize(seed string) string {
	var b strings.Builder
	b.Grow(len(seed))
	for _, r := range seed {
		if isSlugRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

func isSlugRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_':
		return true
	}
	return false
}

// Allocate returns a slug derived from seed that is not in existing.
//
// An empty seed yields "<prefix>-<random>". Otherwise the sanitized seed is
// returned if free, then seed-2, seed-3 and so on; when every probe is taken
// the result is seed-<unix millis>, which is not checked again.
func (a *Allocator) Allocate(seed string, existing []string) string {
	if seed == "" {
		return a.prefix() + "-" + a.random()
	}

	base := Sanitize(seed)
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}

	for i := 0; i < a.maxProbes(); i++ {
		candidate := base + "-" + strconv.Itoa(i+2)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
	return WithTimestamp(base, a.now())
}

// WithTimestamp appends the unix millisecond time to s.
func WithTimestamp(s string, t time.Time) string {
	return s + "-" + strconv.FormatInt(t.UnixMilli(), 10)
}

func (a *Allocator) prefix() string {
	if a.RandomPrefix == "" {
		return DefaultRandomPrefix
	}
	return a.RandomPrefix
}

func (a *Allocator) random() string {
	if a.Random == nil {
		return RandomSuffix()
	}
	return a.Random()
}

func (a *Allocator) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

func (a *Allocator) maxProbes() int {
	if a.MaxProbes <= 0 {
		return DefaultMaxProbes
	}
	return a.MaxProbes
}
