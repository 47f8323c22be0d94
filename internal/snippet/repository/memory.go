package repository

import (
	"context"
	"sync"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
)

// MemoryRepo is an in-memory Store used for development and unit tests.
// Records are copied on the way in and out so callers never share memory
// with the map.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]*snippet.Snippet
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*snippet.Snippet)}
}

func (m *MemoryRepo) Add(_ context.Context, s *snippet.Snippet) (*snippet.Snippet, error) {
	rec := prepare(s)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[rec.ID]; ok {
		return nil, snippet.ErrConflict
	}
	m.store[rec.ID] = rec
	return rec.Clone(), nil
}

func (m *MemoryRepo) Find(_ context.Context, id string) (*snippet.Snippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.store[id]; ok {
		return s.Clone(), nil
	}
	return nil, nil
}

func (m *MemoryRepo) Scan(_ context.Context, q snippet.Query) ([]*snippet.Snippet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := make([]*snippet.Snippet, 0, len(m.store))
	for _, s := range m.store {
		all = append(all, s)
	}
	m.mu.RUnlock()

	found := q.Apply(all)
	out := make([]*snippet.Snippet, len(found))
	for i, s := range found {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *MemoryRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*snippet.Snippet, error) {
	return m.Scan(ctx, expiredQuery(before, limit))
}

func (m *MemoryRepo) Delete(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.store, id)
	}
	return nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryRepo) Ping(context.Context) error { return nil }

// Len returns the number of physically stored records.
func (m *MemoryRepo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}
