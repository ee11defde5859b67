// Package sqlite implements a SQLite storage sink using database/sql and the
// pure-Go modernc driver. SQLite has no bulk-load API, so AppendRows runs a
// prepared INSERT inside one transaction; that keeps performance acceptable
// for the file sizes this pipeline handles, and the pure-Go driver lets unit
// tests exercise the full sink path without a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
)

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink is a SQLite-backed storage.Sink.
type Sink struct {
	db *sql.DB
}

// New opens the SQLite database named by cfg.DSN (or cfg.Database as a plain
// file path when DSN is empty).
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = cfg.Database
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, storage.ErrNoCredentials
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Sink{db: db}, nil
}

// EnsureTable checks sqlite_master and creates the table when absent.
func (s *Sink) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("sqlite: ensure table %s: no columns", table)
	}
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
	switch {
	case err == nil:
		log.Printf("sink: table %s already exists", table)
		return nil
	case err != sql.ErrNoRows:
		return fmt.Errorf("sqlite: check table %s: %w", table, err)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("sqlite: create table %s: %w", table, err)
	}
	log.Printf("sink: table %s created", table)
	return nil
}

// AppendRows inserts every row of ds into table inside one transaction.
func (s *Sink) AppendRows(ctx context.Context, table string, ds *dataset.Dataset) (int64, error) {
	cols := ds.ColumnNames()
	if len(cols) == 0 {
		return 0, fmt.Errorf("sqlite: append to %s: dataset has no columns", table)
	}
	if ds.RowCount() == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(cols))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var total int64
	args := make([]any, len(cols))
	for i := 0; i < ds.RowCount(); i++ {
		for j, c := range cols {
			args[j] = ds.Value(i, c)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return total, fmt.Errorf("sqlite: insert row %d into %s: %w", i, table, err)
		}
		total++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return total, nil
}

// Close closes the connection pool.
func (s *Sink) Close() { s.db.Close() }

// Query is a small helper for tests and tooling that need to inspect sink
// contents without reaching into the pool.
func (s *Sink) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}
