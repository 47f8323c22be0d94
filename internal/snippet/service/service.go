package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/pastebin/pastebin/internal/snippet/repository"
	"github.com/pastebin/pastebin/pkg/metrics"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Service defines the snippet operations used by the handler layer.
// GetByID returns (nil, nil) for unknown and expired snippets alike.
type Service interface {
	Create(ctx context.Context, in *snippet.CreateInput) (*snippet.View, error)
	GetByID(ctx context.Context, id string) (*snippet.View, error)
	GetRecent(ctx context.Context, count int) ([]*snippet.View, error)
}

// Option customizes a service.
type Option func(*snippetService)

// WithClock replaces the wall clock. Used by tests to move time.
func WithClock(now func() time.Time) Option {
	return func(s *snippetService) { s.now = now }
}

// WithIDGenerator replaces the identifier source.
func WithIDGenerator(gen func() string) Option {
	return func(s *snippetService) { s.newID = gen }
}

// New returns a Service on top of the given store.
func New(store repository.Store, opts ...Option) Service {
	s := &snippetService{store: store, now: time.Now, newID: repository.NewID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewMemoryService returns a Service backed by the in-memory repository.
func NewMemoryService(opts ...Option) Service {
	return New(repository.NewMemoryRepo(), opts...)
}

// NewMongoService returns a Service backed by a MongoDB collection.
// Caller is responsible for creating the collection (and client) and passing it in.
func NewMongoService(col *mongo.Collection, opts ...Option) Service {
	return New(repository.NewMongoRepo(col), opts...)
}

// NewRedisService returns a Service backed by Redis.
func NewRedisService(client *redis.Client, prefix string, opts ...Option) Service {
	return New(repository.NewRedisRepo(client, prefix), opts...)
}

// NewSQLiteService returns a Service backed by a SQLite database.
func NewSQLiteService(ctx context.Context, db *sql.DB, opts ...Option) (Service, error) {
	repo, err := repository.NewSQLiteRepo(ctx, db)
	if err != nil {
		return nil, err
	}
	return New(repo, opts...), nil
}

// maxTTLMinutes is the longest ttl whose duration fits in a time.Duration.
const maxTTLMinutes = int(math.MaxInt64 / int64(time.Minute))

type snippetService struct {
	store repository.Store
	now   func() time.Time
	newID func() string
}

// creationTime returns the current instant in UTC at millisecond precision,
// the finest resolution every store preserves.
func (s *snippetService) creationTime() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *snippetService) Create(ctx context.Context, in *snippet.CreateInput) (*snippet.View, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: create request is nil", snippet.ErrInvalidInput)
	}
	if in.Content == nil {
		return nil, fmt.Errorf("%w: content is required", snippet.ErrInvalidInput)
	}
	if in.TTLMinutes != nil && *in.TTLMinutes < 0 {
		return nil, fmt.Errorf("%w: ttl must not be negative", snippet.ErrInvalidInput)
	}
	if in.TTLMinutes != nil && *in.TTLMinutes > maxTTLMinutes {
		return nil, fmt.Errorf("%w: ttl of %d minutes is out of range", snippet.ErrInvalidInput, *in.TTLMinutes)
	}

	created := s.creationTime()
	rec := &snippet.Snippet{
		ID:        s.newID(),
		Title:     in.Title,
		Language:  in.Language,
		IsPrivate: in.IsPrivate,
		Content:   *in.Content,
		CreatedAt: created,
	}
	if in.TTLMinutes != nil {
		exp := created.Add(time.Duration(*in.TTLMinutes) * time.Minute)
		rec.ExpiresAt = &exp
	}

	stored, err := s.store.Add(ctx, rec)
	if err != nil {
		return nil, err
	}
	metrics.SnippetsCreated.Inc()
	return snippet.ToView(stored), nil
}

func (s *snippetService) GetByID(ctx context.Context, id string) (*snippet.View, error) {
	rec, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		metrics.SnippetLookups.WithLabelValues("missing").Inc()
		return nil, nil
	}
	if rec.ExpiredAt(s.now().UTC()) {
		metrics.SnippetLookups.WithLabelValues("expired").Inc()
		return nil, nil
	}
	metrics.SnippetLookups.WithLabelValues("found").Inc()
	return snippet.ToView(rec), nil
}

func (s *snippetService) GetRecent(ctx context.Context, count int) ([]*snippet.View, error) {
	if count <= 0 {
		return []*snippet.View{}, nil
	}
	recs, err := s.store.Scan(ctx, RecentQuery(s.now().UTC(), count))
	if err != nil {
		return nil, err
	}
	metrics.RecentListings.Inc()
	if len(recs) > count {
		recs = recs[:count]
	}
	out := make([]*snippet.View, 0, len(recs))
	for _, r := range recs {
		out = append(out, snippet.ToView(r))
	}
	return out, nil
}

// RecentQuery selects public snippets that are unexpired at now, newest first.
func RecentQuery(now time.Time, count int) snippet.Query {
	return snippet.Query{
		Where: snippet.And{
			snippet.Eq{Field: snippet.FieldIsPrivate, Value: false},
			snippet.Or{
				snippet.IsNull{Field: snippet.FieldExpiresAt},
				snippet.After{Field: snippet.FieldExpiresAt, Time: now},
			},
		},
		Order: snippet.ByCreatedDesc,
		Limit: count,
	}
}

// IsUnavailable reports whether err came from a storage failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, snippet.ErrStorageUnavailable)
}
