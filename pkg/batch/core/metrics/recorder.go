// Package metrics declares the observability boundary of the digest pipeline.
// Backends (Prometheus, OpenTelemetry) live in infrastructure/metrics.
package metrics

import (
	"context"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// MetricRecorder records job, chunk and row level metrics.
//
// Implementations must be safe for concurrent use: chunk processors call them from
// their own goroutines.
type MetricRecorder interface {
	// RecordJobStart records the start of a digest job.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)
	// RecordJobEnd records the terminal state of a digest job.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordChunkProcessed records the report of a chunk that completed.
	RecordChunkProcessed(ctx context.Context, report model.ChunkReport, duration time.Duration)
	// RecordChunkLost records a chunk that produced no report.
	RecordChunkLost(ctx context.Context, failure model.ChunkFailure)

	// RecordRowRetry records one retried row attempt. reason is the error class.
	RecordRowRetry(ctx context.Context, reason string)

	// RecordDuration records the execution time of a named operation.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
