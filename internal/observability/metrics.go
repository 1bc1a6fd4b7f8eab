package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// climate pipeline.
type Metrics struct {
	RastersClipped   prometheus.Counter
	RastersSkipped   *prometheus.CounterVec // labels: reason={suffix,empty_sample}
	RowsWritten      prometheus.Counter
	RecordsPublished prometheus.Counter
	ParseFallbacks   prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Stage timing metrics.
	StageDuration   *prometheus.HistogramVec // labels: stage={clip,extract,napi}
	ValidSampleSize prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RastersClipped,
		m.RastersSkipped,
		m.RowsWritten,
		m.RecordsPublished,
		m.ParseFallbacks,
		m.PipelineRunning,
		m.StageDuration,
		m.ValidSampleSize,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RastersClipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridclim",
			Name:      "rasters_clipped_total",
			Help:      "Total rasters clipped to the study-area boundary.",
		}),
		RastersSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridclim",
			Name:      "rasters_skipped_total",
			Help:      "Total rasters skipped, by reason.",
		}, []string{"reason"}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridclim",
			Name:      "rows_written_total",
			Help:      "Total statistics rows appended to the time-series table.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridclim",
			Name:      "records_published_total",
			Help:      "Total statistics records published to the sink topic.",
		}),
		ParseFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridclim",
			Name:      "filename_parse_fallbacks_total",
			Help:      "Total filenames that required fallback metadata parsing.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridclim",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridclim",
			Name:      "stage_duration_seconds",
			Help:      "Duration of one pipeline stage over the whole batch.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"stage"}),
		ValidSampleSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridclim",
			Name:      "valid_sample_size",
			Help:      "Number of valid cells per extracted raster.",
			Buckets:   []float64{100, 1000, 10000, 100000, 1e6, 1e7},
		}),
	}
}
