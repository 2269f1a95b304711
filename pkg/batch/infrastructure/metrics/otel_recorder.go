package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	coreMetrics "github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
)

const instrumentationName = "github.com/tigerroll/orgdigestor"

// OTelRecorder records digest metrics through an OpenTelemetry meter.
type OTelRecorder struct {
	jobs          metric.Int64Counter
	jobDuration   metric.Float64Histogram
	rows          metric.Int64Counter
	chunkDuration metric.Float64Histogram
	lostChunks    metric.Int64Counter
	rowRetries    metric.Int64Counter
	durations     metric.Float64Histogram
}

var _ coreMetrics.MetricRecorder = (*OTelRecorder)(nil)

// NewOTelRecorder creates the instruments on a meter of provider.
func NewOTelRecorder(provider metric.MeterProvider) (*OTelRecorder, error) {
	meter := provider.Meter(instrumentationName)
	r := &OTelRecorder{}
	var err error

	if r.jobs, err = meter.Int64Counter(namespace+".jobs", metric.WithDescription("Digest jobs by status.")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram(namespace+".job.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.rows, err = meter.Int64Counter(namespace+".rows", metric.WithDescription("Rows by outcome.")); err != nil {
		return nil, err
	}
	if r.chunkDuration, err = meter.Float64Histogram(namespace+".chunk.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.lostChunks, err = meter.Int64Counter(namespace+".chunks.lost"); err != nil {
		return nil, err
	}
	if r.rowRetries, err = meter.Int64Counter(namespace+".row.retries"); err != nil {
		return nil, err
	}
	if r.durations, err = meter.Float64Histogram(namespace+".operation.duration", metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *OTelRecorder) RecordJobStart(ctx context.Context, exec *model.JobExecution) {
	r.jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(model.JobStatusStarted))))
}

func (r *OTelRecorder) RecordJobEnd(ctx context.Context, exec *model.JobExecution) {
	r.jobs.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(exec.Status))))
	if exec.EndTime != nil {
		r.jobDuration.Record(ctx, exec.EndTime.Sub(exec.StartTime).Seconds())
	}
}

func (r *OTelRecorder) RecordChunkProcessed(ctx context.Context, report model.ChunkReport, elapsed time.Duration) {
	r.rows.Add(ctx, int64(report.Created), metric.WithAttributes(attribute.String("outcome", "created")))
	r.rows.Add(ctx, int64(report.Updated), metric.WithAttributes(attribute.String("outcome", "updated")))
	r.rows.Add(ctx, int64(report.Errors), metric.WithAttributes(attribute.String("outcome", "error")))
	r.chunkDuration.Record(ctx, elapsed.Seconds())
}

func (r *OTelRecorder) RecordChunkLost(ctx context.Context, failure model.ChunkFailure) {
	r.lostChunks.Add(ctx, 1)
}

func (r *OTelRecorder) RecordRowRetry(ctx context.Context, reason string) {
	r.rowRetries.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *OTelRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := make([]attribute.KeyValue, 0, len(tags)+1)
	attrs = append(attrs, attribute.String("name", name))
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.durations.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
