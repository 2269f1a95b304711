package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	coreMetrics "github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
)

func finishedJob() *model.JobExecution {
	exec := model.NewJobExecution("orgs.csv", 2)
	exec.Finish(&model.SummaryReport{Chunks: 2, Created: 2, Errors: 1}, nil)
	return exec
}

func TestPrometheusRecorder(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "orgdigestor.prom")
	r := NewPrometheusRecorder(path)

	exec := finishedJob()
	r.RecordJobStart(ctx, exec)
	r.RecordChunkProcessed(ctx, model.ChunkReport{Created: 2, Updated: 1, Errors: 1}, 20*time.Millisecond)
	r.RecordChunkLost(ctx, model.ChunkFailure{ChunkIndex: 3})
	r.RecordRowRetry(ctx, "TransientStoreException")
	r.RecordRowRetry(ctx, "TransientStoreException")
	r.RecordJobEnd(ctx, exec)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.rows.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.rows.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.lostChunks))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.rowRetries.WithLabelValues("TransientStoreException")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobs.WithLabelValues("COMPLETED")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orgdigestor_chunks_lost_total 1")
}

func TestOTelRecorder(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r, err := NewOTelRecorder(provider)
	require.NoError(t, err)

	r.RecordChunkProcessed(ctx, model.ChunkReport{Created: 3}, time.Millisecond)
	r.RecordChunkLost(ctx, model.ChunkFailure{ChunkIndex: 1})
	r.RecordDuration(ctx, "split", time.Second, map[string]string{"source": "orgs.csv"})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["orgdigestor.rows"])
	assert.True(t, names["orgdigestor.chunks.lost"])
	assert.True(t, names["orgdigestor.operation.duration"])
}

func TestOTelTracerSpans(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tracer := NewOTelTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))

	exec := model.NewJobExecution("orgs.csv", 2)
	ctx, endJob := tracer.StartJobSpan(context.Background(), exec)
	chunkCtx, endChunk := tracer.StartChunkSpan(ctx, model.Chunk{Index: 0, Key: "k", Rows: 2})
	tracer.RecordEvent(chunkCtx, "row.retry", map[string]interface{}{"attempt": 2})
	endChunk()
	tracer.RecordError(ctx, "orchestrator", errors.New("split failed"))
	exec.Finish(nil, errors.New("split failed"))
	endJob()

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "digest.chunk", ended[0].Name())
	assert.Equal(t, ended[1].SpanContext().SpanID(), ended[0].Parent().SpanID())
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "digest.job", ended[1].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)
}

type countingRecorder struct {
	coreMetrics.NoOpMetricRecorder
	mu      sync.Mutex
	retries int
}

func (c *countingRecorder) RecordRowRetry(ctx context.Context, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retries++
}

func TestAsyncRecorderDrainsOnClose(t *testing.T) {
	target := &countingRecorder{}
	r := NewAsyncMetricRecorder(100, target)
	for i := 0; i < 50; i++ {
		r.RecordRowRetry(context.Background(), "x")
	}
	r.Close()
	r.Close()

	assert.Equal(t, 50, target.retries)
	r.RecordRowRetry(context.Background(), "late")
	assert.Equal(t, 50, target.retries)
}

func TestDecorateMetricRecorder(t *testing.T) {
	base := coreMetrics.NewNoOpMetricRecorder()

	cfg := config.NewConfig()
	got, err := DecorateMetricRecorder(fxtest.NewLifecycle(t), cfg, base)
	require.NoError(t, err)
	assert.Same(t, base, got)

	cfg.Digestor.Metrics.Recorder = "prometheus"
	lc := fxtest.NewLifecycle(t)
	got, err = DecorateMetricRecorder(lc, cfg, base)
	require.NoError(t, err)
	assert.IsType(t, &AsyncMetricRecorder{}, got)
	lc.RequireStart().RequireStop()

	cfg.Digestor.Metrics.Recorder = "statsd"
	_, err = DecorateMetricRecorder(fxtest.NewLifecycle(t), cfg, base)
	assert.ErrorContains(t, err, "statsd")
}

func TestDecorateTracer(t *testing.T) {
	base := coreMetrics.NewNoOpTracer()
	cfg := config.NewConfig()

	got, err := DecorateTracer(fxtest.NewLifecycle(t), cfg, base)
	require.NoError(t, err)
	assert.Same(t, base, got)

	cfg.Digestor.Tracing.Exporter = "zipkin"
	_, err = DecorateTracer(fxtest.NewLifecycle(t), cfg, base)
	assert.ErrorContains(t, err, "zipkin")
}
