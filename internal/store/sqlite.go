package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// fieldSep separates record fields inside a stored row. The record files
// are comma-delimited, so fields never contain it.
const fieldSep = "\x1f"

// SQLiteCatalog keeps every collection in one embedded database while
// preserving the load-all/save-all contract of the flat files. Unlike the
// CSV catalog it can commit writes to several collections in a single
// transaction.
type SQLiteCatalog struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewSQLiteCatalog opens (or creates) the database at path and runs
// migrations.
func NewSQLiteCatalog(path string, logger *zerolog.Logger) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		pos INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (collection, pos)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate records table: %w", err)
	}
	return &SQLiteCatalog{db: db, logger: logger}, nil
}

type txKey struct{}

// RunInTx executes fn with every contained Save/Load sharing one
// transaction. Nested calls reuse the outer transaction.
func (c *SQLiteCatalog) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrStorage, err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrStorage, err)
	}
	return nil
}

func (c *SQLiteCatalog) store(collection string) *sqliteStore {
	return &sqliteStore{catalog: c, db: c.db, collection: collection}
}

func (c *SQLiteCatalog) Users() RecordStore          { return c.store("users") }
func (c *SQLiteCatalog) Appointments() RecordStore   { return c.store("appointments") }
func (c *SQLiteCatalog) Availability() RecordStore   { return c.store("availability") }
func (c *SQLiteCatalog) Outcomes() RecordStore       { return c.store("outcomes") }
func (c *SQLiteCatalog) Medicines() RecordStore      { return c.store("medicines") }
func (c *SQLiteCatalog) Bills() RecordStore          { return c.store("bills") }
func (c *SQLiteCatalog) Replenishments() RecordStore { return c.store("replenishments") }

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error { return c.db.Close() }

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqliteStore struct {
	catalog    *SQLiteCatalog
	db         *sql.DB
	collection string
}

func (s *sqliteStore) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return s.db
}

func (s *sqliteStore) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT data FROM records WHERE collection = ? ORDER BY pos`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %v", ErrStorage, s.collection, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", ErrStorage, s.collection, err)
		}
		records = append(records, Record(strings.Split(data, fieldSep)))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate %s: %v", ErrStorage, s.collection, err)
	}
	return records, nil
}

func (s *sqliteStore) Save(ctx context.Context, records []Record) error {
	// A bare Save still rewrites the whole collection atomically.
	if ctx.Value(txKey{}) == nil {
		return s.catalog.RunInTx(ctx, func(ctx context.Context) error {
			return s.Save(ctx, records)
		})
	}
	q := s.q(ctx)
	if _, err := q.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("%w: clear %s: %v", ErrStorage, s.collection, err)
	}
	for i, rec := range records {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO records (collection, pos, data) VALUES (?, ?, ?)`,
			s.collection, i, strings.Join(rec, fieldSep)); err != nil {
			return fmt.Errorf("%w: insert %s row %d: %v", ErrStorage, s.collection, i, err)
		}
	}
	return nil
}
