package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/redis/go-redis/v9"
)

// RedisRepo implements Store on Redis. Each record is a JSON string under
// "<prefix>snippet:<id>"; a sorted set "<prefix>snippets:by_created" scored
// by creation time in milliseconds indexes them for scans. Members with
// equal scores are ordered by id, matching snippet.Order tie-breaking.
type RedisRepo struct {
	client *redis.Client
	prefix string
	page   int64
}

// addScript writes the record and its index entry atomically, refusing to
// overwrite an existing id.
var addScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[2], ARGV[3])
return 1
`)

// NewRedisRepo creates a Redis-backed store. Prefix may be empty.
func NewRedisRepo(client *redis.Client, prefix string) *RedisRepo {
	if prefix == "" {
		prefix = "pastebin:"
	}
	return &RedisRepo{client: client, prefix: prefix, page: 64}
}

func (r *RedisRepo) key(id string) string {
	return r.prefix + "snippet:" + id
}

func (r *RedisRepo) indexKey() string {
	return r.prefix + "snippets:by_created"
}

func (r *RedisRepo) Add(ctx context.Context, s *snippet.Snippet) (*snippet.Snippet, error) {
	rec := prepare(s)
	b, err := json.Marshal(rec)
	if err != nil {
		// only times outside what JSON can carry (years past 9999) end up here
		return nil, fmt.Errorf("%w: encode snippet: %w", snippet.ErrInvalidInput, err)
	}
	added, err := addScript.Run(ctx, r.client,
		[]string{r.key(rec.ID), r.indexKey()},
		string(b), rec.CreatedAt.UnixMilli(), rec.ID,
	).Int()
	if err != nil {
		return nil, unavailable("redis add", err)
	}
	if added == 0 {
		return nil, snippet.ErrConflict
	}
	return rec, nil
}

func (r *RedisRepo) Find(ctx context.Context, id string) (*snippet.Snippet, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, unavailable("redis get", err)
	}
	var s snippet.Snippet
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, unavailable("redis decode "+id, err)
	}
	return &s, nil
}

// Scan walks the creation-time index page by page and filters in process.
// Only creation-time ordering is supported.
func (r *RedisRepo) Scan(ctx context.Context, q snippet.Query) ([]*snippet.Snippet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Order.Key() != snippet.FieldCreatedAt {
		return nil, fmt.Errorf("%w: redis store orders by %s only", snippet.ErrUnsupportedQuery, snippet.FieldCreatedAt)
	}
	out := []*snippet.Snippet{}
	if q.Limit <= 0 {
		return out, nil
	}
	seen := make(map[string]struct{})
	for start := int64(0); len(out) < q.Limit; start += r.page {
		stop := start + r.page - 1
		var ids []string
		var err error
		if q.Order.Descending {
			ids, err = r.client.ZRevRange(ctx, r.indexKey(), start, stop).Result()
		} else {
			ids, err = r.client.ZRange(ctx, r.indexKey(), start, stop).Result()
		}
		if err != nil {
			return nil, unavailable("redis scan", err)
		}
		if len(ids) == 0 {
			break
		}
		batch, err := r.load(ctx, ids)
		if err != nil {
			return nil, err
		}
		for _, s := range batch {
			// a concurrent add can shift offsets between pages
			if _, dup := seen[s.ID]; dup {
				continue
			}
			seen[s.ID] = struct{}{}
			if !q.Matches(s) {
				continue
			}
			out = append(out, s)
			if len(out) == q.Limit {
				break
			}
		}
		if int64(len(ids)) < r.page {
			break
		}
	}
	return out, nil
}

// load fetches records for ids, skipping index entries whose record is gone.
func (r *RedisRepo) load(ctx context.Context, ids []string) ([]*snippet.Snippet, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("redis mget", err)
	}
	out := make([]*snippet.Snippet, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var s snippet.Snippet
		if err := json.Unmarshal([]byte(str), &s); err != nil {
			return nil, unavailable("redis decode "+ids[i], err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *RedisRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*snippet.Snippet, error) {
	return r.Scan(ctx, expiredQuery(before, limit))
}

func (r *RedisRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
		members[i] = id
	}
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, keys...)
		p.ZRem(ctx, r.indexKey(), members...)
		return nil
	})
	if err != nil {
		return unavailable("redis delete", err)
	}
	return nil
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
