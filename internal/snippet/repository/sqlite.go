package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS snippets (
	id         TEXT PRIMARY KEY,
	title      TEXT,
	language   TEXT,
	is_private INTEGER NOT NULL DEFAULT 0,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_snippets_recent ON snippets(is_private, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_snippets_expires ON snippets(expires_at) WHERE expires_at IS NOT NULL;`

const sqliteColumns = "id, title, language, is_private, content, created_at, expires_at"

// SQLiteRepo implements Store on a single SQL table. Timestamps are stored
// as unix milliseconds.
type SQLiteRepo struct {
	db *sql.DB
}

// NewSQLiteRepo creates the snippets table if needed.
func NewSQLiteRepo(ctx context.Context, db *sql.DB) (*SQLiteRepo, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("create snippets schema: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

func (r *SQLiteRepo) Add(ctx context.Context, s *snippet.Snippet) (*snippet.Snippet, error) {
	rec := prepare(s)
	var expires sql.NullInt64
	if rec.ExpiresAt != nil {
		expires = sql.NullInt64{Int64: rec.ExpiresAt.UnixMilli(), Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO snippets (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(id) DO NOTHING`,
		rec.ID, nullString(rec.Title), nullString(rec.Language), rec.IsPrivate, rec.Content,
		rec.CreatedAt.UnixMilli(), expires,
	)
	if err != nil {
		return nil, unavailable("sqlite insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, unavailable("sqlite insert", err)
	}
	if n == 0 {
		return nil, snippet.ErrConflict
	}
	return rec, nil
}

func (r *SQLiteRepo) Find(ctx context.Context, id string) (*snippet.Snippet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM snippets WHERE id = ?`, id)
	s, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("sqlite find", err)
	}
	return s, nil
}

func (r *SQLiteRepo) Scan(ctx context.Context, q snippet.Query) ([]*snippet.Snippet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return []*snippet.Snippet{}, nil
	}
	where, args, err := sqlWhere(q.Where)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + sqliteColumns + ` FROM snippets WHERE ` + where +
		` ORDER BY ` + sqlOrder(q.Order) + ` LIMIT ?`
	args = append(args, q.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("sqlite scan", err)
	}
	defer rows.Close()
	out := []*snippet.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, unavailable("sqlite scan", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("sqlite scan", err)
	}
	return out, nil
}

func (r *SQLiteRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*snippet.Snippet, error) {
	return r.Scan(ctx, expiredQuery(before, limit))
}

func (r *SQLiteRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM snippets WHERE id IN (`+marks+`)`, args...); err != nil {
		return unavailable("sqlite delete", err)
	}
	return nil
}

func (r *SQLiteRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnippet(row rowScanner) (*snippet.Snippet, error) {
	var (
		s         snippet.Snippet
		title     sql.NullString
		language  sql.NullString
		createdAt int64
		expiresAt sql.NullInt64
	)
	if err := row.Scan(&s.ID, &title, &language, &s.IsPrivate, &s.Content, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	if title.Valid {
		s.Title = &title.String
	}
	if language.Valid {
		s.Language = &language.String
	}
	s.CreatedAt = time.UnixMilli(createdAt).UTC()
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64).UTC()
		s.ExpiresAt = &t
	}
	return &s, nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// sqlWhere translates a predicate into a WHERE clause with positional args.
// Column names equal the snippet field names.
func sqlWhere(p snippet.Predicate) (string, []any, error) {
	if p == nil {
		return "1=1", nil, nil
	}
	switch v := p.(type) {
	case snippet.Eq:
		return string(v.Field) + " = ?", []any{v.Value}, nil
	case snippet.IsNull:
		return string(v.Field) + " IS NULL", nil, nil
	case snippet.After:
		return string(v.Field) + " > ?", []any{v.Time.UnixMilli()}, nil
	case snippet.Before:
		return string(v.Field) + " < ?", []any{ceilMilli(v.Time).UnixMilli()}, nil
	case snippet.And:
		return sqlJoin(v, " AND ", "1=1")
	case snippet.Or:
		return sqlJoin(v, " OR ", "0=1")
	}
	return "", nil, fmt.Errorf("%w: %T", snippet.ErrUnsupportedQuery, p)
}

func sqlJoin(ps []snippet.Predicate, sep, empty string) (string, []any, error) {
	if len(ps) == 0 {
		return empty, nil, nil
	}
	parts := make([]string, 0, len(ps))
	var args []any
	for _, p := range ps {
		clause, a, err := sqlWhere(p)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+clause+")")
		args = append(args, a...)
	}
	return strings.Join(parts, sep), args, nil
}

func sqlOrder(o snippet.Order) string {
	dir := "ASC"
	if o.Descending {
		dir = "DESC"
	}
	if o.Key() == snippet.FieldID {
		return "id " + dir
	}
	return string(o.Key()) + " " + dir + ", id " + dir
}
