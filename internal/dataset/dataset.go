// Package dataset holds the in-memory tabular representation of one parsed
// CSV file, together with the normalization and de-duplication steps applied
// before the file is persisted.
//
// A Dataset is created by parsing one CSV file, mutated in place by Normalize
// and Deduplicate, read by the parquet writer and the storage sink, and
// discarded once the file's pipeline run completes. It is not safe for
// concurrent mutation.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Options configures CSV parsing. All fields are optional; zero values fall
// back to the documented defaults.
type Options struct {
	// Comma is the field delimiter. When zero, ';' is used (the source files
	// this pipeline ingests are semicolon-delimited).
	Comma rune

	// DropIncompleteRows silently drops any row that has a missing or empty
	// field instead of raising an error. This is a named policy, not an
	// accident: incomplete rows are counted and reported via Parse's skipped
	// return, never persisted.
	DropIncompleteRows bool

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool
}

// Dataset is an ordered sequence of rows over a fixed, ordered column list.
// Every row has exactly the column set of the header.
type Dataset struct {
	cols []string
	rows []map[string]string
}

// Parse reads CSV records from r and returns the Dataset plus the number of
// rows skipped under the DropIncompleteRows policy or due to width mismatch.
// Structural CSV errors (bad quoting, encoding) fail the parse.
func Parse(r io.Reader, opt Options) (*Dataset, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.TrimLeadingSpace = true
	// Tolerate ragged rows; width mismatches are skipped per row below
	// instead of failing the whole file.
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("dataset: read csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		c := strings.TrimSpace(h)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		cols[i] = c
	}

	var rows []map[string]string
	var skipped int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("dataset: read csv row: %w", err)
		}
		if len(row) != len(cols) {
			skipped++
			continue
		}
		rec := make(map[string]string, len(cols))
		complete := true
		for i, val := range row {
			if opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			if val == "" {
				complete = false
			}
			rec[cols[i]] = val
		}
		if opt.DropIncompleteRows && !complete {
			skipped++
			continue
		}
		rows = append(rows, rec)
	}
	return &Dataset{cols: cols, rows: rows}, skipped, nil
}

// Normalize lowercases all column names and every value, in place. Applying
// Normalize twice yields the same dataset as applying it once.
func (d *Dataset) Normalize() {
	lowered := make([]string, len(d.cols))
	for i, c := range d.cols {
		lowered[i] = strings.ToLower(c)
	}
	for ri, row := range d.rows {
		out := make(map[string]string, len(row))
		for i, c := range d.cols {
			out[lowered[i]] = strings.ToLower(row[c])
		}
		d.rows[ri] = out
	}
	d.cols = lowered
}

// Deduplicate removes rows that are identical across all columns, keeping the
// first occurrence and preserving order. Run it after Normalize so that
// case-different duplicates collapse.
func (d *Dataset) Deduplicate() {
	if len(d.rows) < 2 {
		return
	}
	seen := make(map[uint64][]map[string]string, len(d.rows))
	out := d.rows[:0]
rows:
	for _, row := range d.rows {
		h := d.fingerprint(row)
		for _, prev := range seen[h] {
			if equalRows(d.cols, prev, row) {
				continue rows
			}
		}
		seen[h] = append(seen[h], row)
		out = append(out, row)
	}
	d.rows = out
}

// fingerprint hashes a row's values in column order, with a field separator
// that cannot appear in CSV data after parsing.
func (d *Dataset) fingerprint(row map[string]string) uint64 {
	var b strings.Builder
	for _, c := range d.cols {
		b.WriteString(row[c])
		b.WriteByte('\x1f')
	}
	return xxh3.HashString(b.String())
}

func equalRows(cols []string, a, b map[string]string) bool {
	for _, c := range cols {
		if a[c] != b[c] {
			return false
		}
	}
	return true
}

// Columns returns the column set.
func (d *Dataset) Columns() map[string]struct{} {
	out := make(map[string]struct{}, len(d.cols))
	for _, c := range d.cols {
		out[c] = struct{}{}
	}
	return out
}

// ColumnNames returns the ordered column names. The returned slice must not
// be mutated.
func (d *Dataset) ColumnNames() []string { return d.cols }

// RowCount returns the number of rows.
func (d *Dataset) RowCount() int { return len(d.rows) }

// Value returns the value at row i for the named column.
func (d *Dataset) Value(i int, col string) string { return d.rows[i][col] }

// ValidateAgainst reports whether the dataset's column set equals the
// catalog's expected set exactly. Extra and missing columns both fail; this
// is deliberately not a subset check.
func (d *Dataset) ValidateAgainst(cat *schema.Catalog) bool {
	if len(d.cols) != cat.Len() {
		return false
	}
	for _, c := range d.cols {
		if !cat.Has(c) {
			return false
		}
	}
	return true
}
