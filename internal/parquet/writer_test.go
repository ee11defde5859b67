package parquet

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow/go/v18/arrow/memory"
	pqfile "github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
)

func mkDataset(t *testing.T, csvText string) *dataset.Dataset {
	t.Helper()
	d, _, err := dataset.Parse(strings.NewReader(csvText), dataset.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d
}

// Writing a dataset and reading the artifact back with an independent reader
// reproduces the same row count and column set.
func TestWriteRoundTrip(t *testing.T) {
	ds := mkDataset(t, "name;age\nalice;30\nbob;41\ncarol;29\n")
	dest := filepath.Join(t.TempDir(), "out.parquet")

	rep, err := Writer{}.Write(ds, dest)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if rep.Bytes <= 0 {
		t.Fatalf("report bytes = %d, want > 0", rep.Bytes)
	}
	if rep.Elapsed <= 0 {
		t.Fatalf("report elapsed = %v, want > 0", rep.Elapsed)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}

	rdr, err := pqfile.OpenParquetFile(dest, false)
	if err != nil {
		t.Fatalf("open parquet: %v", err)
	}
	defer rdr.Close()
	arrowRdr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		t.Fatalf("arrow reader: %v", err)
	}
	tbl, err := arrowRdr.ReadTable(context.Background())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	defer tbl.Release()

	if got, want := int(tbl.NumRows()), ds.RowCount(); got != want {
		t.Fatalf("rows = %d, want %d", got, want)
	}
	gotCols := map[string]struct{}{}
	for _, f := range tbl.Schema().Fields() {
		gotCols[f.Name] = struct{}{}
	}
	if !reflect.DeepEqual(gotCols, ds.Columns()) {
		t.Fatalf("columns: got %v want %v", gotCols, ds.Columns())
	}
}

// A failed write must not leave a partial artifact at the destination.
func TestWriteFailureLeavesNoArtifact(t *testing.T) {
	ds := mkDataset(t, "name;age\nalice;30\n")
	dest := filepath.Join(t.TempDir(), "missing-dir", "out.parquet")

	if _, err := (Writer{}).Write(ds, dest); err == nil {
		t.Fatalf("expected error writing into missing directory")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Fatalf("artifact exists after failed write")
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file exists after failed write")
	}
}

func TestWriteEmptyDataset(t *testing.T) {
	ds := mkDataset(t, "name;age\n")
	dest := filepath.Join(t.TempDir(), "empty.parquet")
	if _, err := (Writer{}).Write(ds, dest); err != nil {
		t.Fatalf("Write empty: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
}
