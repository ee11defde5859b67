// Package pipeline orchestrates the per-file ingestion workflow: read,
// validate, normalize, deduplicate, write the Parquet artifact, append rows
// to the relational sink, delete the source file, update run statistics.
//
// Every failure exit leaves the source file in place for operator inspection;
// nothing is retried within the same process run. The one known correctness
// gap is between "artifact written" and "rows appended" versus "source
// deleted": a crash or append failure in that window leaves the source file,
// the artifact, and the row state in whatever partial combination occurred,
// and reprocessing the same source can duplicate rows in the sink (no
// idempotency key exists). This is a documented limitation of the append-only
// design, not something the pipeline papers over.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/dataset"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/metrics"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/parquet"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/schema"
	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/storage"
)

// Outcome is the terminal state of one file's pipeline run.
type Outcome int

const (
	// Converted: artifact written, rows appended, source deleted.
	Converted Outcome = iota
	// ReadFailed: the file could not be read or parsed; source left in place.
	ReadFailed
	// SchemaRejected: column set did not match the catalog; source left in place.
	SchemaRejected
	// ArtifactFailed: the Parquet write failed; no partial artifact remains,
	// source left in place.
	ArtifactFailed
	// PersistFailed: the sink append failed; the artifact already exists and
	// the source is still on disk, so a retry outside this process may
	// duplicate rows.
	PersistFailed
)

func (o Outcome) String() string {
	switch o {
	case Converted:
		return "converted"
	case ReadFailed:
		return "read_failed"
	case SchemaRejected:
		return "schema_rejected"
	case ArtifactFailed:
		return "artifact_failed"
	case PersistFailed:
		return "persist_failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Pipeline drives the ingestion workflow for individual files. It is safe for
// concurrent Run calls as long as no two calls process the same path.
type Pipeline struct {
	catalog *schema.Catalog
	writer  parquet.Writer
	sink    storage.Sink
	table   string
	outDir  string
	parse   dataset.Options
	stats   *Stats

	// console mirrors the conversion-success and row-count lines that the log
	// stream also receives. Defaults to os.Stdout.
	console io.Writer
}

// New constructs a Pipeline. stats must not be nil; the caller owns it and
// reads it at shutdown for the summary report.
func New(catalog *schema.Catalog, sink storage.Sink, table, outDir string, parse dataset.Options, stats *Stats) *Pipeline {
	parse.DropIncompleteRows = true
	return &Pipeline{
		catalog: catalog,
		sink:    sink,
		table:   table,
		outDir:  outDir,
		parse:   parse,
		stats:   stats,
		console: os.Stdout,
	}
}

// SetConsole redirects the console mirror, mainly for tests.
func (p *Pipeline) SetConsole(w io.Writer) { p.console = w }

// Run executes the full workflow for one source file and returns its terminal
// outcome. All failures are logged here with the offending path; Run never
// panics the caller and never deletes a file it failed to process.
func (p *Pipeline) Run(ctx context.Context, path string) Outcome {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Printf("pipeline: error processing file %s: %v", path, err)
		metrics.RecordFile(ReadFailed.String())
		return ReadFailed
	}

	start := time.Now()
	ds, skipped, err := dataset.Parse(bytes.NewReader(raw), p.parse)
	metrics.RecordStep("parse", err, time.Since(start))
	if err != nil {
		log.Printf("pipeline: error processing file %s: %v", path, err)
		metrics.RecordFile(ReadFailed.String())
		return ReadFailed
	}
	metrics.RecordRows("parsed", int64(ds.RowCount()))
	metrics.RecordRows("dropped_incomplete", int64(skipped))

	ds.Normalize()
	before := ds.RowCount()
	ds.Deduplicate()
	metrics.RecordRows("deduplicated", int64(before-ds.RowCount()))

	if !ds.ValidateAgainst(p.catalog) {
		err := fmt.Errorf("column set %v does not match schema", keys(ds.Columns()))
		log.Printf("pipeline: schema validation failed for %s: %v", path, err)
		metrics.RecordStep("validate", err, 0)
		metrics.RecordFile(SchemaRejected.String())
		return SchemaRejected
	}
	metrics.RecordStep("validate", nil, 0)

	total := ds.RowCount()
	log.Printf("pipeline: total rows in dataset: %d", total)
	fmt.Fprintf(p.console, "Total rows for this file: %d\n", total)

	dest := filepath.Join(p.outDir, artifactName(path))
	rep, err := p.writer.Write(ds, dest)
	metrics.RecordStep("write_parquet", err, rep.Elapsed)
	if err != nil {
		log.Printf("pipeline: artifact write failed for %s: %v", path, err)
		metrics.RecordFile(ArtifactFailed.String())
		return ArtifactFailed
	}
	log.Printf("pipeline: converted %s to %s (%d bytes in %s)", path, dest, rep.Bytes, rep.Elapsed.Truncate(time.Microsecond))
	fmt.Fprintf(p.console, "Conversion successful: %s uploaded to %s\n", path, dest)

	appendStart := time.Now()
	n, err := p.sink.AppendRows(ctx, p.table, ds)
	metrics.RecordStep("append", err, time.Since(appendStart))
	if err != nil {
		// The artifact is already on disk and the source file survives; a
		// retry of this file will re-append and may duplicate rows.
		log.Printf("pipeline: error loading rows into table %s from %s: %v", p.table, path, err)
		metrics.RecordFile(PersistFailed.String())
		return PersistFailed
	}
	metrics.RecordRows("inserted", n)
	log.Printf("pipeline: %d rows appended to table %s", n, p.table)

	if err := os.Remove(path); err != nil {
		log.Printf("pipeline: delete source %s: %v", path, err)
	} else {
		log.Printf("pipeline: deleted source file %s", path)
	}

	p.stats.Record(int64(len(raw)), rep.Elapsed)
	metrics.RecordFile(Converted.String())
	return Converted
}

// MoveToFailed moves a file into an "output_failed" directory next to it,
// creating the directory as needed, and returns the destination path. It is a
// reusable operation for integrating applications; the default pipeline run
// leaves failed files in place and does not call it.
func MoveToFailed(path string) (string, error) {
	failedDir := filepath.Join(filepath.Dir(path), "output_failed")
	if err := os.MkdirAll(failedDir, 0o755); err != nil {
		return "", fmt.Errorf("pipeline: create %s: %w", failedDir, err)
	}
	dest := filepath.Join(failedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("pipeline: move %s to failed: %w", path, err)
	}
	log.Printf("pipeline: moved unsuccessful file %s to %s", path, dest)
	return dest, nil
}

// artifactName derives the artifact file name from the source file's base
// name: same name, parquet extension.
func artifactName(src string) string {
	base := filepath.Base(src)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".parquet"
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
