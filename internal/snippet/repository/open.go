package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pastebin/pastebin/internal/config"
	"github.com/pastebin/pastebin/internal/database"
	"github.com/pastebin/pastebin/pkg/logger"
)

// Backend is a store that also supports purging and health checks.
// Every repository in this package satisfies it.
type Backend interface {
	Store
	Purger
	Pinger
}

const mongoCollection = "snippets"

// Open connects to the store selected by cfg.Snippet.Store. The returned
// close function releases the underlying connection and is never nil.
func Open(ctx context.Context, cfg *config.Config) (Backend, func(), error) {
	switch cfg.Snippet.Store {
	case config.StoreMemory:
		logger.Warnf("using in-memory snippet store; data is lost on restart")
		return NewMemoryRepo(), func() {}, nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		repo, err := NewSQLiteRepo(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		logger.Infof("using SQLite snippet store at %s", cfg.SQLite.Path)
		return repo, func() { _ = db.Close() }, nil

	case config.StoreMongo:
		client, err := database.ConnectMongoRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, nil, err
		}
		col := client.Database(cfg.MongoDB.Database).Collection(mongoCollection)
		logger.Infof("using MongoDB snippet store %s.%s", cfg.MongoDB.Database, mongoCollection)
		return NewMongoRepo(col), func() { _ = client.Disconnect(context.Background()) }, nil

	case config.StoreRedis:
		client, err := database.ConnectRedis(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, 5*time.Second)
		if err != nil {
			return nil, nil, err
		}
		logger.Infof("using Redis snippet store at %s (prefix %q)", cfg.Redis.Addr(), cfg.Redis.Prefix)
		return NewRedisRepo(client, cfg.Redis.Prefix), func() { _ = client.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown snippet store %q", cfg.Snippet.Store)
}
