package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pastebin/pastebin/internal/snippet"
)

// Store is the persistence contract the snippet service depends on.
// Find returns (nil, nil) when no record has the given id.
// Add stores timestamps in UTC at millisecond precision, the finest
// resolution every backend keeps, and returns the record as stored.
type Store interface {
	Add(ctx context.Context, s *snippet.Snippet) (*snippet.Snippet, error)
	Find(ctx context.Context, id string) (*snippet.Snippet, error)
	Scan(ctx context.Context, q snippet.Query) ([]*snippet.Snippet, error)
}

// Purger is implemented by stores that support physical removal of expired
// records. Only the retention sweeper uses it.
type Purger interface {
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*snippet.Snippet, error)
	Delete(ctx context.Context, ids []string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewID returns a fresh random identifier.
func NewID() string {
	return uuid.NewString()
}

// prepare copies s for storage: it assigns a missing id and truncates the
// timestamps to UTC milliseconds.
func prepare(s *snippet.Snippet) *snippet.Snippet {
	rec := s.Clone()
	if rec.ID == "" {
		rec.ID = NewID()
	}
	rec.CreatedAt = rec.CreatedAt.UTC().Truncate(time.Millisecond)
	if rec.ExpiresAt != nil {
		t := rec.ExpiresAt.UTC().Truncate(time.Millisecond)
		rec.ExpiresAt = &t
	}
	return rec
}

// ceilMilli rounds t up to the next whole millisecond. Stored times are whole
// milliseconds, so "stored < t" holds exactly when "stored < ceilMilli(t)".
func ceilMilli(t time.Time) time.Time {
	c := t.Truncate(time.Millisecond)
	if c.Before(t) {
		c = c.Add(time.Millisecond)
	}
	return c
}

// unavailable wraps a backend error as ErrStorageUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", snippet.ErrStorageUnavailable, op, err)
}

// expiredQuery selects records that expired strictly before the given instant.
func expiredQuery(before time.Time, limit int) snippet.Query {
	return snippet.Query{
		Where: snippet.Before{Field: snippet.FieldExpiresAt, Time: before},
		Order: snippet.Order{Field: snippet.FieldCreatedAt},
		Limit: limit,
	}
}
