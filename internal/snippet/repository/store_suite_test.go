package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/stretchr/testify/require"
)

// storeUnderTest is what every backend exposes to the shared suite.
type storeUnderTest interface {
	Store
	Purger
	Pinger
}

var base = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func record(id string, created time.Time) *snippet.Snippet {
	return &snippet.Snippet{ID: id, Content: "content " + id, CreatedAt: created}
}

// runStoreSuite checks the Store contract against one backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) storeUnderTest) {
	ctx := context.Background()

	t.Run("AddFindRoundTrip", func(t *testing.T) {
		s := newStore(t)
		in := &snippet.Snippet{
			ID:        "a1",
			Title:     strPtr(""),
			Language:  strPtr("go"),
			IsPrivate: true,
			Content:   "package main",
			CreatedAt: base,
			ExpiresAt: timePtr(base.Add(time.Hour)),
		}
		out, err := s.Add(ctx, in)
		require.NoError(t, err)
		require.Equal(t, in, out)

		got, err := s.Find(ctx, "a1")
		require.NoError(t, err)
		require.Equal(t, in, got)
	})

	t.Run("AbsentOptionalFieldsStayAbsent", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Add(ctx, record("plain", base))
		require.NoError(t, err)
		got, err := s.Find(ctx, "plain")
		require.NoError(t, err)
		require.Nil(t, got.Title)
		require.Nil(t, got.Language)
		require.Nil(t, got.ExpiresAt)
	})

	t.Run("AddAssignsMissingID", func(t *testing.T) {
		s := newStore(t)
		out, err := s.Add(ctx, record("", base))
		require.NoError(t, err)
		require.NotEmpty(t, out.ID)
		got, err := s.Find(ctx, out.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("DuplicateIDConflicts", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Add(ctx, record("dup", base))
		require.NoError(t, err)
		_, err = s.Add(ctx, &snippet.Snippet{ID: "dup", Content: "other", CreatedAt: base.Add(time.Hour)})
		require.ErrorIs(t, err, snippet.ErrConflict)

		got, err := s.Find(ctx, "dup")
		require.NoError(t, err)
		require.Equal(t, "content dup", got.Content)
		require.Equal(t, base, got.CreatedAt)
	})

	t.Run("FindMissIsNil", func(t *testing.T) {
		s := newStore(t)
		got, err := s.Find(ctx, "nope")
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("FindIgnoresExpiry", func(t *testing.T) {
		s := newStore(t)
		old := record("old", base.Add(-48*time.Hour))
		old.ExpiresAt = timePtr(base.Add(-47 * time.Hour))
		_, err := s.Add(ctx, old)
		require.NoError(t, err)
		got, err := s.Find(ctx, "old")
		require.NoError(t, err)
		require.NotNil(t, got)
	})

	t.Run("ScanFiltersOrdersAndLimits", func(t *testing.T) {
		s := newStore(t)
		priv := record("p", base.Add(3*time.Minute))
		priv.IsPrivate = true
		expired := record("e", base.Add(4*time.Minute))
		expired.ExpiresAt = timePtr(base.Add(5 * time.Minute))
		live := record("l", base.Add(2*time.Minute))
		live.ExpiresAt = timePtr(base.Add(time.Hour))
		for _, r := range []*snippet.Snippet{record("a", base), record("b", base.Add(time.Minute)), priv, expired, live} {
			_, err := s.Add(ctx, r)
			require.NoError(t, err)
		}

		now := base.Add(10 * time.Minute)
		q := snippet.Query{
			Where: snippet.And{
				snippet.Eq{Field: snippet.FieldIsPrivate, Value: false},
				snippet.Or{
					snippet.IsNull{Field: snippet.FieldExpiresAt},
					snippet.After{Field: snippet.FieldExpiresAt, Time: now},
				},
			},
			Order: snippet.ByCreatedDesc,
			Limit: 10,
		}
		got, err := s.Scan(ctx, q)
		require.NoError(t, err)
		require.Equal(t, []string{"l", "b", "a"}, ids(got))

		q.Limit = 2
		got, err = s.Scan(ctx, q)
		require.NoError(t, err)
		require.Equal(t, []string{"l", "b"}, ids(got))

		q.Limit = 0
		got, err = s.Scan(ctx, q)
		require.NoError(t, err)
		require.Empty(t, got)

		asc, err := s.Scan(ctx, snippet.Query{Order: snippet.Order{Field: snippet.FieldCreatedAt}, Limit: 3})
		require.NoError(t, err)
		require.Equal(t, []string{"a", "b", "l"}, ids(asc))
	})

	t.Run("ScanTextPredicates", func(t *testing.T) {
		s := newStore(t)
		goRec := record("g", base)
		goRec.Language = strPtr("go")
		_, err := s.Add(ctx, goRec)
		require.NoError(t, err)
		_, err = s.Add(ctx, record("n", base.Add(time.Second)))
		require.NoError(t, err)

		got, err := s.Scan(ctx, snippet.Query{Where: snippet.Eq{Field: snippet.FieldLanguage, Value: "go"}, Limit: 5})
		require.NoError(t, err)
		require.Equal(t, []string{"g"}, ids(got))

		got, err = s.Scan(ctx, snippet.Query{Where: snippet.IsNull{Field: snippet.FieldLanguage}, Limit: 5})
		require.NoError(t, err)
		require.Equal(t, []string{"n"}, ids(got))

		got, err = s.Scan(ctx, snippet.Query{Where: snippet.Or{}, Limit: 5})
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("ScanTiesBreakByID", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"c", "a", "d", "b"} {
			_, err := s.Add(ctx, record(id, base))
			require.NoError(t, err)
		}
		for i := 0; i < 3; i++ {
			got, err := s.Scan(ctx, snippet.Query{Order: snippet.ByCreatedDesc, Limit: 4})
			require.NoError(t, err)
			require.Equal(t, []string{"d", "c", "b", "a"}, ids(got))
		}
	})

	t.Run("ScanRejectsBadPredicate", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Scan(ctx, snippet.Query{Where: snippet.Eq{Field: snippet.FieldIsPrivate, Value: "yes"}, Limit: 1})
		require.ErrorIs(t, err, snippet.ErrUnsupportedQuery)
		_, err = s.Scan(ctx, snippet.Query{Where: snippet.After{Field: snippet.FieldTitle, Time: base}, Limit: 1})
		require.ErrorIs(t, err, snippet.ErrUnsupportedQuery)
	})

	t.Run("ScanPagesThroughManyRecords", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 150; i++ {
			r := record(fmt.Sprintf("r%03d", i), base.Add(time.Duration(i)*time.Second))
			r.IsPrivate = i%3 != 0
			_, err := s.Add(ctx, r)
			require.NoError(t, err)
		}
		got, err := s.Scan(ctx, snippet.Query{
			Where: snippet.Eq{Field: snippet.FieldIsPrivate, Value: false},
			Order: snippet.ByCreatedDesc,
			Limit: 40,
		})
		require.NoError(t, err)
		require.Len(t, got, 40)
		require.Equal(t, "r147", got[0].ID)
		require.Equal(t, "r030", got[39].ID)
	})

	t.Run("ListExpiredAndDelete", func(t *testing.T) {
		s := newStore(t)
		gone := record("gone", base)
		gone.ExpiresAt = timePtr(base.Add(time.Minute))
		later := record("later", base)
		later.ExpiresAt = timePtr(base.Add(time.Hour))
		for _, r := range []*snippet.Snippet{gone, later, record("forever", base)} {
			_, err := s.Add(ctx, r)
			require.NoError(t, err)
		}

		exp, err := s.ListExpired(ctx, base.Add(10*time.Minute), 10)
		require.NoError(t, err)
		require.Equal(t, []string{"gone"}, ids(exp))

		require.NoError(t, s.Delete(ctx, []string{"gone"}))
		got, err := s.Find(ctx, "gone")
		require.NoError(t, err)
		require.Nil(t, got)

		rest, err := s.Scan(ctx, snippet.Query{Limit: 10})
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"later", "forever"}, ids(rest))
		require.NoError(t, s.Delete(ctx, nil))
	})

	t.Run("ConcurrentAdds", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					id := fmt.Sprintf("w%d-%d", w, i)
					if _, err := s.Add(ctx, record(id, base.Add(time.Duration(i)*time.Millisecond))); err != nil {
						t.Error(err)
					}
					if _, err := s.Scan(ctx, snippet.Query{Order: snippet.ByCreatedDesc, Limit: 5}); err != nil {
						t.Error(err)
					}
				}
			}(w)
		}
		wg.Wait()
		all, err := s.Scan(ctx, snippet.Query{Limit: 1000})
		require.NoError(t, err)
		require.Len(t, all, 80)
		for _, r := range all {
			require.Equal(t, "content "+r.ID, r.Content)
		}
	})

	t.Run("FarFutureExpiryRoundTrips", func(t *testing.T) {
		s := newStore(t)
		far := record("far", base)
		far.ExpiresAt = timePtr(time.Date(2404, 8, 6, 5, 20, 0, 0, time.UTC))
		_, err := s.Add(ctx, far)
		require.NoError(t, err)

		got, err := s.Find(ctx, "far")
		require.NoError(t, err)
		require.Equal(t, far, got)

		live, err := s.Scan(ctx, snippet.Query{Where: snippet.After{Field: snippet.FieldExpiresAt, Time: base}, Limit: 5})
		require.NoError(t, err)
		require.Equal(t, []string{"far"}, ids(live))

		exp, err := s.ListExpired(ctx, base.Add(100*365*24*time.Hour), 5)
		require.NoError(t, err)
		require.Empty(t, exp)
	})

	t.Run("SubMillisecondTimesAreTruncated", func(t *testing.T) {
		s := newStore(t)
		b := record("b", base.Add(200*time.Microsecond))
		a := record("a", base.Add(500*time.Microsecond))
		a.ExpiresAt = timePtr(base.Add(time.Minute + 900*time.Microsecond))
		for _, r := range []*snippet.Snippet{b, a} {
			out, err := s.Add(ctx, r)
			require.NoError(t, err)
			require.Equal(t, base, out.CreatedAt)
		}

		got, err := s.Find(ctx, "a")
		require.NoError(t, err)
		require.Equal(t, base, got.CreatedAt)
		require.Equal(t, base.Add(time.Minute), *got.ExpiresAt)

		// equal creation times fall back to id ordering on every backend
		recent, err := s.Scan(ctx, snippet.Query{Order: snippet.ByCreatedDesc, Limit: 5})
		require.NoError(t, err)
		require.Equal(t, []string{"b", "a"}, ids(recent))

		// stored expiry is base+1m, which is before base+1m+0.1ms
		exp, err := s.ListExpired(ctx, base.Add(time.Minute+100*time.Microsecond), 5)
		require.NoError(t, err)
		require.Equal(t, []string{"a"}, ids(exp))
		exp, err = s.ListExpired(ctx, base.Add(time.Minute), 5)
		require.NoError(t, err)
		require.Empty(t, exp)
	})

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, newStore(t).Ping(ctx))
	})
}

func ids(rs []*snippet.Snippet) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
