package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
)

var testCols = []schema.Column{
	{Name: "name", Type: "TEXT"},
	{Name: "age", Type: "INTEGER"},
}

func openTestSink(t *testing.T) *Sink {
	t.Helper()
	s, err := New(context.Background(), storage.Config{
		DSN: filepath.Join(t.TempDir(), "sink.db"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestNewNoCredentials(t *testing.T) {
	if _, err := New(context.Background(), storage.Config{}); !errors.Is(err, storage.ErrNoCredentials) {
		t.Fatalf("err = %v, want ErrNoCredentials", err)
	}
}

// The second EnsureTable call for an existing table must be a no-op.
func TestEnsureTableIdempotent(t *testing.T) {
	s := openTestSink(t)
	ctx := context.Background()

	if err := s.EnsureTable(ctx, "student_data", testCols); err != nil {
		t.Fatalf("first EnsureTable: %v", err)
	}
	if err := s.EnsureTable(ctx, "student_data", testCols); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}

	rows, err := s.Query(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'student_data'")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var n int
	if !rows.Next() {
		t.Fatalf("no count row")
	}
	if err := rows.Scan(&n); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("table count = %d, want 1", n)
	}
}

func TestAppendRows(t *testing.T) {
	s := openTestSink(t)
	ctx := context.Background()
	if err := s.EnsureTable(ctx, "student_data", testCols); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}

	ds, _, err := dataset.Parse(strings.NewReader("name;age\nalice;30\nbob;41\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, err := s.AppendRows(ctx, "student_data", ds)
	if err != nil {
		t.Fatalf("AppendRows: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	// Appends never truncate: a second call adds rows.
	if _, err := s.AppendRows(ctx, "student_data", ds); err != nil {
		t.Fatalf("second AppendRows: %v", err)
	}
	rows, err := s.Query(ctx, "SELECT count(*) FROM student_data")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer rows.Close()
	var total int
	rows.Next()
	if err := rows.Scan(&total); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if total != 4 {
		t.Fatalf("row count = %d, want 4", total)
	}
}

func TestAppendRowsEmptyDataset(t *testing.T) {
	s := openTestSink(t)
	ctx := context.Background()
	if err := s.EnsureTable(ctx, "student_data", testCols); err != nil {
		t.Fatalf("EnsureTable: %v", err)
	}
	ds, _, err := dataset.Parse(strings.NewReader("name;age\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	n, err := s.AppendRows(ctx, "student_data", ds)
	if err != nil || n != 0 {
		t.Fatalf("AppendRows empty: n=%d err=%v, want 0,nil", n, err)
	}
}

func TestAppendRowsMissingTable(t *testing.T) {
	s := openTestSink(t)
	ds, _, err := dataset.Parse(strings.NewReader("name;age\nalice;30\n"), dataset.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := s.AppendRows(context.Background(), "absent", ds); err == nil {
		t.Fatalf("expected error appending to missing table")
	}
}
