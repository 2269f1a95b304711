// Package metrics holds the metric recorders and tracers selected by the metrics and
// tracing configuration sections.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const namespace = "orgdigestor"

// PrometheusRecorder keeps digest metrics in a private registry.
// A batch job has no scrape endpoint, so the registry is written to a textfile for the
// node exporter textfile collector when a job ends.
type PrometheusRecorder struct {
	registry     *prometheus.Registry
	textfilePath string

	jobs          *prometheus.CounterVec
	jobDuration   prometheus.Histogram
	rows          *prometheus.CounterVec
	chunkDuration prometheus.Histogram
	lostChunks    prometheus.Counter
	rowRetries    *prometheus.CounterVec
	durations     *prometheus.HistogramVec
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder registers the digest collectors. An empty textfilePath disables the dump.
func NewPrometheusRecorder(textfilePath string) *PrometheusRecorder {
	r := &PrometheusRecorder{
		registry:     prometheus.NewRegistry(),
		textfilePath: textfilePath,
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Digest jobs by terminal status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of digest jobs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows by outcome (created, updated, error).",
		}, []string{"outcome"}),
		chunkDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_duration_seconds",
			Help:      "Processing time of one chunk.",
			Buckets:   prometheus.DefBuckets,
		}),
		lostChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_lost_total",
			Help:      "Chunks that produced no report.",
		}),
		rowRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "row_retries_total",
			Help:      "Row attempts repeated after a transient failure.",
		}, []string{"reason"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of named operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
	}
	r.registry.MustRegister(r.jobs, r.jobDuration, r.rows, r.chunkDuration, r.lostChunks, r.rowRetries, r.durations)
	return r
}

// Registry exposes the underlying registry.
func (r *PrometheusRecorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, exec *model.JobExecution) {
	r.jobs.WithLabelValues(string(model.JobStatusStarted)).Inc()
}

func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, exec *model.JobExecution) {
	r.jobs.WithLabelValues(string(exec.Status)).Inc()
	if exec.EndTime != nil {
		r.jobDuration.Observe(exec.EndTime.Sub(exec.StartTime).Seconds())
	}
	if err := r.WriteTextfile(); err != nil {
		logger.Warnf("Failed to write metrics textfile '%s': %v", r.textfilePath, err)
	}
}

func (r *PrometheusRecorder) RecordChunkProcessed(ctx context.Context, report model.ChunkReport, elapsed time.Duration) {
	r.rows.WithLabelValues("created").Add(float64(report.Created))
	r.rows.WithLabelValues("updated").Add(float64(report.Updated))
	r.rows.WithLabelValues("error").Add(float64(report.Errors))
	r.chunkDuration.Observe(elapsed.Seconds())
}

func (r *PrometheusRecorder) RecordChunkLost(ctx context.Context, failure model.ChunkFailure) {
	r.lostChunks.Inc()
}

func (r *PrometheusRecorder) RecordRowRetry(ctx context.Context, reason string) {
	r.rowRetries.WithLabelValues(reason).Inc()
}

func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.durations.WithLabelValues(name).Observe(duration.Seconds())
}

// WriteTextfile dumps the registry in text exposition format. It is a no-op without a path.
func (r *PrometheusRecorder) WriteTextfile() error {
	if r.textfilePath == "" {
		return nil
	}
	return prometheus.WriteToTextfile(r.textfilePath, r.registry)
}
