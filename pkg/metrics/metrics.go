// Package metrics provides Prometheus metrics for the fern pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DownloadsTotal tracks dataset downloads by source and status
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "fetch",
			Name:      "downloads_total",
			Help:      "Total number of dataset downloads by source and status",
		},
		[]string{"source", "status"},
	)

	// DownloadBytes tracks bytes written per source
	DownloadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "fetch",
			Name:      "bytes_total",
			Help:      "Total number of bytes downloaded per source",
		},
		[]string{"source"},
	)

	// DownloadDuration tracks download duration in seconds
	DownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Duration of dataset downloads in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"source"},
	)

	// RowsLoaded tracks rows loaded per source
	RowsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "loader",
			Name:      "rows",
			Help:      "Number of rows loaded from the latest file per source",
		},
		[]string{"source"},
	)

	// StageDuration tracks pipeline stage duration in seconds
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	// WarningsTotal tracks diagnostics by stage and kind
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "warnings_total",
			Help:      "Total number of diagnostics raised by stage and kind",
		},
		[]string{"stage", "kind"},
	)

	// IdentifierConversions tracks identifier conversions by codec and outcome
	IdentifierConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "identifiers",
			Name:      "conversions_total",
			Help:      "Total number of identifier conversions by codec and outcome",
		},
		[]string{"codec", "outcome"},
	)

	// OutputRows tracks rows in the latest normalized table
	OutputRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "output_rows",
			Help:      "Number of rows in the latest normalized table",
		},
	)

	// RunsTotal tracks pipeline runs by status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// SinkWritesTotal tracks writes per sink and status
	SinkWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fern",
			Subsystem: "sink",
			Name:      "writes_total",
			Help:      "Total number of sink writes by sink and status",
		},
		[]string{"sink", "status"},
	)
)

// WriteTextfile dumps the default registry in the text exposition format,
// for node_exporter's textfile collector after a batch run.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
