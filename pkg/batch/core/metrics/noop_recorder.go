package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// NoOpMetricRecorder discards every metric. It is used when metrics are disabled and in tests.
type NoOpMetricRecorder struct{}

func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

func (r *NoOpMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}
func (r *NoOpMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution)   {}
func (r *NoOpMetricRecorder) RecordChunkProcessed(ctx context.Context, report model.ChunkReport, duration time.Duration) {
}
func (r *NoOpMetricRecorder) RecordChunkLost(ctx context.Context, failure model.ChunkFailure) {}
func (r *NoOpMetricRecorder) RecordRowRetry(ctx context.Context, reason string)               {}
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// NoOpTracer creates no spans.
type NoOpTracer struct{}

func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (t *NoOpTracer) StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) StartChunkSpan(ctx context.Context, chunk model.Chunk) (context.Context, func()) {
	return ctx, func() {}
}

func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
}

var _ Tracer = (*NoOpTracer)(nil)
