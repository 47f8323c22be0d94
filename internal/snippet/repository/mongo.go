package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pastebin/pastebin/internal/snippet"
	"github.com/pastebin/pastebin/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Store on a MongoDB collection. The snippet id is the
// document _id, so uniqueness is enforced by the primary index.
type MongoRepo struct {
	col *mongo.Collection
}

var mongoFields = map[snippet.Field]string{
	snippet.FieldID:        "_id",
	snippet.FieldTitle:     "title",
	snippet.FieldLanguage:  "language",
	snippet.FieldIsPrivate: "isPrivate",
	snippet.FieldContent:   "content",
	snippet.FieldCreatedAt: "createdAt",
	snippet.FieldExpiresAt: "expiresAt",
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	// recent listing scans public records newest first; the sweeper scans by expiry
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: "isPrivate", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetSparse(true)},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := col.Indexes().CreateMany(ctx, idx); err != nil {
		logger.Warnf("mongo: create snippet indexes: %v", err)
	}
	return &MongoRepo{col: col}
}

func (m *MongoRepo) Add(ctx context.Context, s *snippet.Snippet) (*snippet.Snippet, error) {
	rec := prepare(s)
	if _, err := m.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, snippet.ErrConflict
		}
		return nil, unavailable("mongo insert", err)
	}
	return rec, nil
}

func (m *MongoRepo) Find(ctx context.Context, id string) (*snippet.Snippet, error) {
	var s snippet.Snippet
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, unavailable("mongo find", err)
	}
	return &s, nil
}

func (m *MongoRepo) Scan(ctx context.Context, q snippet.Query) ([]*snippet.Snippet, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if q.Limit <= 0 {
		return []*snippet.Snippet{}, nil
	}
	filter, err := mongoFilter(q.Where)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(mongoSort(q.Order)).SetLimit(int64(q.Limit))
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("mongo scan", err)
	}
	defer cur.Close(ctx)
	out := []*snippet.Snippet{}
	for cur.Next(ctx) {
		var s snippet.Snippet
		if err := cur.Decode(&s); err != nil {
			return nil, unavailable("mongo decode", err)
		}
		out = append(out, &s)
	}
	if err := cur.Err(); err != nil {
		return nil, unavailable("mongo cursor", err)
	}
	return out, nil
}

func (m *MongoRepo) ListExpired(ctx context.Context, before time.Time, limit int) ([]*snippet.Snippet, error) {
	return m.Scan(ctx, expiredQuery(before, limit))
}

func (m *MongoRepo) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := m.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); err != nil {
		return unavailable("mongo delete", err)
	}
	return nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}

// mongoFilter translates a predicate into a query document.
func mongoFilter(p snippet.Predicate) (bson.M, error) {
	if p == nil {
		return bson.M{}, nil
	}
	switch v := p.(type) {
	case snippet.Eq:
		return bson.M{mongoFields[v.Field]: v.Value}, nil
	case snippet.IsNull:
		// matches both a missing field and an explicit null
		return bson.M{mongoFields[v.Field]: nil}, nil
	case snippet.After:
		return bson.M{mongoFields[v.Field]: bson.M{"$gt": v.Time}}, nil
	case snippet.Before:
		// the driver drops sub-millisecond precision, so round the bound up
		return bson.M{mongoFields[v.Field]: bson.M{"$lt": ceilMilli(v.Time)}}, nil
	case snippet.And:
		if len(v) == 0 {
			return bson.M{}, nil
		}
		parts, err := mongoFilters(v)
		if err != nil {
			return nil, err
		}
		return bson.M{"$and": parts}, nil
	case snippet.Or:
		if len(v) == 0 {
			return bson.M{"_id": bson.M{"$exists": false}}, nil
		}
		parts, err := mongoFilters(v)
		if err != nil {
			return nil, err
		}
		return bson.M{"$or": parts}, nil
	}
	return nil, fmt.Errorf("%w: %T", snippet.ErrUnsupportedQuery, p)
}

func mongoFilters(ps []snippet.Predicate) (bson.A, error) {
	out := make(bson.A, 0, len(ps))
	for _, p := range ps {
		f, err := mongoFilter(p)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func mongoSort(o snippet.Order) bson.D {
	dir := 1
	if o.Descending {
		dir = -1
	}
	if o.Key() == snippet.FieldID {
		return bson.D{{Key: "_id", Value: dir}}
	}
	return bson.D{{Key: mongoFields[o.Key()], Value: dir}, {Key: "_id", Value: dir}}
}
