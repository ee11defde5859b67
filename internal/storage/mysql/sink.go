// Package mysql implements the MySQL storage sink using database/sql and the
// go-sql-driver. It is the default backend: the target store for this pipeline
// is a MySQL schema reachable with the credentials from the config file.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
)

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink is a MySQL-backed storage.Sink.
type Sink struct {
	db *sql.DB
}

// New opens a pooled MySQL connection for cfg and pings it to fail fast on
// bad credentials. A missing DSN and missing credential fields yield
// storage.ErrNoCredentials.
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Host == "" || cfg.User == "" || cfg.Database == "" {
			return nil, storage.ErrNoCredentials
		}
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		// Network timeouts belong in the DSN; the pipeline imposes none itself.
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?timeout=10s&readTimeout=30s&writeTimeout=30s",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Database)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Sink{db: db}, nil
}

// EnsureTable checks existence with SHOW TABLES LIKE and creates the table
// when absent. Repeated calls for an existing table log and return nil.
func (s *Sink) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("mysql: ensure table %s: no columns", table)
	}
	var name string
	err := s.db.QueryRowContext(ctx, "SHOW TABLES LIKE ?", table).Scan(&name)
	switch {
	case err == nil:
		log.Printf("sink: table %s already exists", table)
		return nil
	case err != sql.ErrNoRows:
		return fmt.Errorf("mysql: check table %s: %w", table, err)
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("mysql: create table %s: %w", table, err)
	}
	log.Printf("sink: table %s created", table)
	return nil
}

// AppendRows inserts every row of ds into table inside one transaction.
func (s *Sink) AppendRows(ctx context.Context, table string, ds *dataset.Dataset) (int64, error) {
	cols := ds.ColumnNames()
	if len(cols) == 0 {
		return 0, fmt.Errorf("mysql: append to %s: dataset has no columns", table)
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
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("mysql: prepare insert: %w", err)
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
			return total, fmt.Errorf("mysql: insert row %d into %s: %w", i, table, err)
		}
		total++
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return total, nil
}

// Close closes the connection pool.
func (s *Sink) Close() { s.db.Close() }
