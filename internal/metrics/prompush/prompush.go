// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// It adapts the generic metrics.Backend interface to Prometheus by mapping
// the pipeline's known metric names onto CounterVec/SummaryVec collectors and
// pushing them to a Pushgateway instead of exposing a scrape endpoint; a
// short-lived watcher process cannot guarantee being up when a scrape comes
// around. All Prometheus-specific dependencies stay inside this package so
// the pipeline itself remains decoupled from the metric system.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/theamythsingh/justplay-events-serverlesss-pipeline-development/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // "ingest_step_total"
	stepDuration *prometheus.SummaryVec // "ingest_step_duration_seconds"
	rowCounter   *prometheus.CounterVec // "ingest_rows_total"
	fileCounter  *prometheus.CounterVec // "ingest_files_total"
}

// NewBackend constructs a Pushgateway backend. jobName is the Pushgateway
// "job" grouping key; gatewayURL is the base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "csv2parquet"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_step_total",
			Help: "Total pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "ingest_step_duration_seconds",
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Row-level counts per kind (parsed, dropped_incomplete, deduplicated, inserted).",
		},
		[]string{"kind"},
	)
	fileCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_files_total",
			Help: "Per-file outcomes (converted, read_failed, schema_rejected, artifact_failed, persist_failed).",
		},
		[]string{"outcome"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, fileCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		fileCounter:  fileCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "ingest_step_total":
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case "ingest_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "ingest_files_total":
		b.fileCounter.WithLabelValues(labels["outcome"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	switch name {
	case "ingest_step_duration_seconds":
		b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
	default:
	}
}

// Flush pushes all collected metrics to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
