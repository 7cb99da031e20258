package storage

import (
	"context"
	"strings"

	"github.com/Aryanchhabra/DeepResearchAI/pkg/storage"
	"github.com/pkg/errors"
)

// Options selects and configures a history backend.
type Options struct {
	Driver        string // file, postgres, sqlite3, redis or memory
	DSN           string // postgres connection string or sqlite3 path
	Dir           string // file backend directory
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func InitStore(ctx context.Context, opts Options) (storage.HistoryStore, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "file":
		return NewFileStore(opts.Dir)
	case "postgres", "sqlite3":
		if opts.DSN == "" {
			return nil, errors.Errorf("%s history store needs a dsn", opts.Driver)
		}
		return NewSQLStore(opts.Driver, opts.DSN)
	case "redis":
		if opts.RedisAddr == "" {
			return nil, errors.New("redis history store needs an address")
		}
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown history driver %q", opts.Driver)
	}
}
