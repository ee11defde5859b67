// Package parquet encodes a dataset into a Parquet artifact on disk.
//
// The write is all-or-nothing from the caller's perspective: bytes go to a
// temporary file next to the destination, which is fsynced and atomically
// renamed into place on success. On any failure the temporary file is removed,
// so a partially written artifact can never be mistaken for a complete one by
// the sink or a later reader.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	pq "github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
)

// Report describes one completed artifact write.
type Report struct {
	// Bytes is the final artifact size on disk.
	Bytes int64
	// Elapsed is the total encode+write duration, including the rename.
	Elapsed time.Duration
}

// Writer encodes datasets to Parquet. The zero value is ready to use.
type Writer struct{}

// noClose hides the wrapped file's Close method. pqarrow.WriteTable closes
// any io.WriteCloser it is handed; Write must keep the descriptor open for
// the fsync and rename that follow.
type noClose struct {
	io.Writer
}

// Write encodes ds and persists it at dest. All columns are written as utf8
// string fields; the pipeline normalizes values to text before this point.
func (Writer) Write(ds *dataset.Dataset, dest string) (Report, error) {
	start := time.Now()

	cols := ds.ColumnNames()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{Name: c, Type: arrow.BinaryTypes.String}
	}
	schema := arrow.NewSchema(fields, nil)

	bldr := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer bldr.Release()
	for i := 0; i < ds.RowCount(); i++ {
		for j, c := range cols {
			bldr.Field(j).(*array.StringBuilder).Append(ds.Value(i, c))
		}
	}
	rec := bldr.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return Report{}, fmt.Errorf("parquet: create %s: %w", tmp, err)
	}

	chunk := int64(ds.RowCount())
	if chunk == 0 {
		chunk = 1
	}
	if err := pqarrow.WriteTable(tbl, noClose{f}, chunk, pq.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		f.Close()
		os.Remove(tmp)
		return Report{}, fmt.Errorf("parquet: encode %s: %w", dest, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return Report{}, fmt.Errorf("parquet: sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return Report{}, fmt.Errorf("parquet: close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return Report{}, fmt.Errorf("parquet: rename to %s: %w", dest, err)
	}

	st, err := os.Stat(dest)
	if err != nil {
		return Report{}, fmt.Errorf("parquet: stat %s: %w", dest, err)
	}
	return Report{Bytes: st.Size(), Elapsed: time.Since(start)}, nil
}
