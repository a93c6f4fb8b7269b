// Package storage selects the review/listing store named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage/memory"
	mongorepo "flex_reviews/internal/storage/mongo"
	mysqlrepo "flex_reviews/internal/storage/mysql"
)

type Store interface {
	domain.ReviewRepository
	domain.ListingRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the configured backend and verifies it is reachable.
func Open(ctx context.Context, cfg shared.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Str("driver", "mysql").Msg("database connection ok")
		return mysqlrepo.New(db), nil

	case "mongo", "mongodb":
		repo, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		log.Info().Str("driver", "mongo").Str("db", cfg.MongoDB).Msg("database connection ok")
		return repo, nil

	case "", "memory":
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memoryStore{memory.New()}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

type memoryStore struct{ *memory.Repo }

func (memoryStore) Ping(context.Context) error  { return nil }
func (memoryStore) Close(context.Context) error { return nil }
