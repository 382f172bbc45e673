package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS records (
	path       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLite stores records in a single table keyed by path.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn and prepares the schema.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", dsn, err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	s, err := NewSQLite(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite uses an existing handle and creates the records table if needed.
func NewSQLite(ctx context.Context, db *sql.DB) (*SQLite, error) {
	if _, err := db.ExecContext(ctx, createRecordsTable); err != nil {
		return nil, fmt.Errorf("creating records table: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, p string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (path, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving %s: %w", p, err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE path = ?`, p).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, fmt.Errorf("loading %s: %w", p, err)
	}
	return data, nil
}

// List uses GLOB to preselect rows, then applies path semantics.
func (s *SQLite) List(ctx context.Context, pattern string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM records WHERE path GLOB ?`, pattern)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning record path: %w", err)
		}
		keys = append(keys, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	return matchAll(pattern, keys)
}

func (s *SQLite) Exists(ctx context.Context, p string) bool {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE path = ?`, p).Scan(&one)
	return err == nil
}

func (s *SQLite) Delete(ctx context.Context, p string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE path = ?`, p)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", p, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting %s: %w", p, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, p)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
