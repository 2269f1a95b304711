package metrics

import (
	"context"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// Tracer wraps job and chunk execution in spans.
type Tracer interface {
	// StartJobSpan starts the root span of a job. The returned function ends it.
	StartJobSpan(ctx context.Context, execution *model.JobExecution) (context.Context, func())
	// StartChunkSpan starts a child span for one chunk.
	StartChunkSpan(ctx context.Context, chunk model.Chunk) (context.Context, func())
	// RecordError records err on the current span.
	RecordError(ctx context.Context, module string, err error)
	// RecordEvent adds an event to the current span.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
