package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and addresses a backend.
type Options struct {
	Backend     string
	DatabaseURL string
	RedisAddr   string
}

// Open returns the configured backend, ready for use, and a function that
// releases it. The postgres driver must be registered by the caller.
func Open(ctx context.Context, opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), noop, nil

	case BackendSQLite, BackendPostgres:
		dialect := DialectSQLite
		if opts.Backend == BackendPostgres {
			dialect = DialectPostgres
		}
		db, err := sql.Open(opts.Backend, opts.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", opts.Backend, err)
		}
		s := NewSQLStore(db, dialect)
		if err := s.Init(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("init %s schema: %w", opts.Backend, err)
		}
		return s, db.Close, nil

	case BackendRedis:
		s := NewRedisStore(opts.RedisAddr, "", 0)
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", opts.RedisAddr, err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", opts.Backend)
}
