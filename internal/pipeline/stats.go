package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Stats is the process-wide run accumulator: total source bytes processed,
// total artifacts written, and the ordered per-file artifact-write durations.
// It is explicitly owned by the caller, guarded by a mutex so concurrent runs
// can share it, and never persisted across restarts.
type Stats struct {
	mu             sync.Mutex
	csvBytes       int64
	parquetFiles   int64
	writeDurations []time.Duration
}

// Record adds one successful conversion to the totals.
func (s *Stats) Record(csvBytes int64, writeDuration time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csvBytes += csvBytes
	s.parquetFiles++
	s.writeDurations = append(s.writeDurations, writeDuration)
}

// TotalCSVBytes returns the total bytes of source CSVs processed.
func (s *Stats) TotalCSVBytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csvBytes
}

// TotalParquetFiles returns the number of artifacts written.
func (s *Stats) TotalParquetFiles() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parquetFiles
}

// WriteDurations returns a copy of the per-file artifact-write durations in
// completion order.
func (s *Stats) WriteDurations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.writeDurations))
	copy(out, s.writeDurations)
	return out
}

// Summary formats the shutdown report: totals plus total and average
// artifact-write duration.
func (s *Stats) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total time.Duration
	for _, d := range s.writeDurations {
		total += d
	}
	avg := time.Duration(0)
	if n := len(s.writeDurations); n > 0 {
		avg = total / time.Duration(n)
	}
	return fmt.Sprintf(
		"processed %d bytes of CSV, wrote %d parquet files, total write time %s, average write time %s",
		s.csvBytes, s.parquetFiles, total.Truncate(time.Microsecond), avg.Truncate(time.Microsecond),
	)
}
