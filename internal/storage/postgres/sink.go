// Package postgres implements a Postgres storage sink using pgx v5. Appends
// go through pgx CopyFrom, which is the fastest bulk path Postgres offers and
// needs no temporary staging because this pipeline only ever appends.
package postgres

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
)

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return New(ctx, cfg)
	})
}

// Sink is a Postgres-backed storage.Sink.
type Sink struct {
	pool *pgxpool.Pool
}

// New opens a pgx connection pool for cfg.
func New(ctx context.Context, cfg storage.Config) (*Sink, error) {
	dsn := cfg.DSN
	if dsn == "" {
		if cfg.Host == "" || cfg.User == "" || cfg.Database == "" {
			return nil, storage.ErrNoCredentials
		}
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%d/%s?connect_timeout=10",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Database)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// EnsureTable checks information_schema and creates the table when absent.
func (s *Sink) EnsureTable(ctx context.Context, table string, cols []schema.Column) error {
	if len(cols) == 0 {
		return fmt.Errorf("postgres: ensure table %s: no columns", table)
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)", table).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check table %s: %w", table, err)
	}
	if exists {
		log.Printf("sink: table %s already exists", table)
		return nil
	}

	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}
	stmt := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", table, err)
	}
	log.Printf("sink: table %s created", table)
	return nil
}

// AppendRows bulk-copies every row of ds into table.
func (s *Sink) AppendRows(ctx context.Context, table string, ds *dataset.Dataset) (int64, error) {
	cols := ds.ColumnNames()
	if len(cols) == 0 {
		return 0, fmt.Errorf("postgres: append to %s: dataset has no columns", table)
	}
	if ds.RowCount() == 0 {
		return 0, nil
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, cols,
		pgx.CopyFromSlice(ds.RowCount(), func(i int) ([]any, error) {
			row := make([]any, len(cols))
			for j, c := range cols {
				row[j] = ds.Value(i, c)
			}
			return row, nil
		}))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

// Close closes the connection pool.
func (s *Sink) Close() { s.pool.Close() }
