package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Onyinyechi46/Fund-Governance/pkg/contracts"

	_ "modernc.org/sqlite"
)

// Dialect selects the placeholder style of the underlying driver.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLStore implements Store using database/sql.
// It supports both Postgres and SQLite via standard drivers.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

const sqlSchema = `
CREATE TABLE IF NOT EXISTS fund_instances (
	id TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	retired BOOLEAN NOT NULL DEFAULT FALSE,
	document TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqlSchema)
	return err
}

// bind rewrites $n placeholders for drivers that only take ?.
func (s *SQLStore) bind(query string) string {
	if s.dialect == DialectPostgres {
		return query
	}
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '$' && i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
			b.WriteByte('?')
			for i+1 < len(query) && query[i+1] >= '0' && query[i+1] <= '9' {
				i++
			}
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) stamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func (s *SQLStore) Create(ctx context.Context, id string, rec *contracts.Record) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	query := s.bind(`
		INSERT INTO fund_instances (id, version, retired, document, updated_at)
		VALUES ($1, 1, FALSE, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`)
	res, err := s.db.ExecContext(ctx, query, id, string(doc), s.stamp())
	if err != nil {
		return fmt.Errorf("create %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrExists, id)
	}
	return nil
}

type sqlRow struct {
	version int64
	retired bool
	doc     string
}

func (s *SQLStore) get(ctx context.Context, id string) (sqlRow, error) {
	query := s.bind(`SELECT version, retired, document FROM fund_instances WHERE id = $1`)
	var r sqlRow
	err := s.db.QueryRowContext(ctx, query, id).Scan(&r.version, &r.retired, &r.doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sqlRow{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return sqlRow{}, err
	}
	return r, nil
}

func (s *SQLStore) Load(ctx context.Context, id string) (Versioned, error) {
	r, err := s.get(ctx, id)
	if err != nil {
		return Versioned{}, err
	}
	if r.retired {
		return Versioned{}, fmt.Errorf("%w: %s", ErrRetired, id)
	}
	rec, err := decodeRecord([]byte(r.doc))
	if err != nil {
		return Versioned{}, err
	}
	return Versioned{ID: id, Record: rec, Version: r.version}, nil
}

func (s *SQLStore) Replace(ctx context.Context, id string, expected int64, next *contracts.Record) (int64, error) {
	doc, err := encodeRecord(next)
	if err != nil {
		return 0, err
	}
	query := s.bind(`
		UPDATE fund_instances
		SET version = version + 1, document = $1, updated_at = $2
		WHERE id = $3 AND version = $4 AND retired = FALSE
	`)
	res, err := s.db.ExecContext(ctx, query, string(doc), s.stamp(), id, expected)
	if err != nil {
		return 0, fmt.Errorf("replace %s: %w", id, err)
	}
	if err := s.checkSwapped(ctx, res, id, expected); err != nil {
		return 0, err
	}
	return expected + 1, nil
}

func (s *SQLStore) Retire(ctx context.Context, id string, expected int64) error {
	query := s.bind(`
		UPDATE fund_instances
		SET version = version + 1, retired = TRUE, updated_at = $1
		WHERE id = $2 AND version = $3 AND retired = FALSE
	`)
	res, err := s.db.ExecContext(ctx, query, s.stamp(), id, expected)
	if err != nil {
		return fmt.Errorf("retire %s: %w", id, err)
	}
	return s.checkSwapped(ctx, res, id, expected)
}

// checkSwapped explains a conditional update that touched no rows.
func (s *SQLStore) checkSwapped(ctx context.Context, res sql.Result, id string, expected int64) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}
	r, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if r.retired {
		return fmt.Errorf("%w: %s", ErrRetired, id)
	}
	return fmt.Errorf("%w: %s at %d, expected %d", ErrStaleVersion, id, r.version, expected)
}
