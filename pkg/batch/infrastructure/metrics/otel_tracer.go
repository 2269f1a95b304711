package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	coreMetrics "github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
)

// OTelTracer wraps jobs and chunks in OpenTelemetry spans.
type OTelTracer struct {
	tracer trace.Tracer
}

var _ coreMetrics.Tracer = (*OTelTracer)(nil)

func NewOTelTracer(provider trace.TracerProvider) *OTelTracer {
	return &OTelTracer{tracer: provider.Tracer(instrumentationName)}
}

// StartJobSpan starts the root span. Counters and status are read from exec when the span ends.
func (t *OTelTracer) StartJobSpan(ctx context.Context, exec *model.JobExecution) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "digest.job", trace.WithAttributes(
		attribute.String("job.id", exec.ID),
		attribute.String("job.source", exec.Source),
		attribute.Int("job.rows_per_task", exec.RowsPerTask),
	))
	return ctx, func() {
		span.SetAttributes(
			attribute.String("job.status", string(exec.Status)),
			attribute.Int("job.chunks", exec.Chunks),
			attribute.Int("job.created", exec.Created),
			attribute.Int("job.updated", exec.Updated),
			attribute.Int("job.errors", exec.Errors),
			attribute.Int("job.lost", exec.Lost),
		)
		if exec.Status == model.JobStatusFailed {
			span.SetStatus(codes.Error, exec.ExitMessage)
		}
		span.End()
	}
}

func (t *OTelTracer) StartChunkSpan(ctx context.Context, c model.Chunk) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "digest.chunk", trace.WithAttributes(
		attribute.Int("chunk.index", c.Index),
		attribute.String("chunk.key", c.Key),
		attribute.Int("chunk.rows", c.Rows),
	))
	return ctx, func() { span.End() }
}

func (t *OTelTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(attribute.String("module", module)))
	span.SetStatus(codes.Error, err.Error())
}

func (t *OTelTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(toAttributes(attributes)...))
}

func toAttributes(m map[string]interface{}) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	return attrs
}
