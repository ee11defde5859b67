// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the ingestion pipeline.
//
// The package is intentionally minimal:
//
//   - It exposes a narrow interface (Backend) focused on counters and timing
//     data.
//   - It provides a global, pluggable backend that defaults to a no-op
//     implementation, so metrics are always safe to call even when no real
//     backend is configured.
//   - It mirrors the storage factory pattern: the rest of the codebase depends
//     only on this interface while concrete metric systems stay isolated in
//     subpackages.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures one pipeline step per file: latency plus a
// success/failure counter. Typical steps: "parse", "validate",
// "write_parquet", "append", "delete_source".
func RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "status": status}
	backend.IncCounter("ingest_step_total", 1, lbls)
	backend.ObserveHistogram("ingest_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows increments a row-level counter for the given kind.
//
// Typical kinds:
//   - "parsed"
//   - "dropped_incomplete"
//   - "deduplicated"
//   - "inserted"
func RecordRows(kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("ingest_rows_total", float64(delta), Labels{"kind": kind})
}

// RecordFile increments the per-file outcome counter ("converted",
// "read_failed", "schema_rejected", "artifact_failed", "persist_failed").
func RecordFile(outcome string) {
	backend.IncCounter("ingest_files_total", 1, Labels{"outcome": outcome})
}
