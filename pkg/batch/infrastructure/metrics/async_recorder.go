package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	coreMetrics "github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const defaultQueueSize = 256

type metricEvent struct {
	kind string
	ctx  context.Context
	fn   func(ctx context.Context, rec coreMetrics.MetricRecorder)
}

// AsyncMetricRecorder moves recording off the chunk goroutines onto one worker.
// Events are dropped with a warning when the queue is full. Close drains the queue.
type AsyncMetricRecorder struct {
	queue    chan metricEvent
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	target   coreMetrics.MetricRecorder
}

var _ coreMetrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

func NewAsyncMetricRecorder(queueSize int, target coreMetrics.MetricRecorder) *AsyncMetricRecorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &AsyncMetricRecorder{
		queue:  make(chan metricEvent, queueSize),
		stopCh: make(chan struct{}),
		target: target,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.queue:
			ev.fn(ev.ctx, r.target)
		case <-r.stopCh:
			for {
				select {
				case ev := <-r.queue:
					ev.fn(ev.ctx, r.target)
				default:
					return
				}
			}
		}
	}
}

// Close stops the worker after every queued event has been recorded.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *AsyncMetricRecorder) send(ctx context.Context, kind string, fn func(context.Context, coreMetrics.MetricRecorder)) {
	select {
	case <-r.stopCh:
		logger.Warnf("Metric recorder closed, %s event discarded.", kind)
		return
	default:
	}
	select {
	case r.queue <- metricEvent{kind: kind, ctx: context.WithoutCancel(ctx), fn: fn}:
	default:
		logger.Warnf("Metric queue full, %s event discarded.", kind)
	}
}

func (r *AsyncMetricRecorder) RecordJobStart(ctx context.Context, exec *model.JobExecution) {
	snapshot := *exec
	r.send(ctx, "job_start", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordJobStart(ctx, &snapshot)
	})
}

func (r *AsyncMetricRecorder) RecordJobEnd(ctx context.Context, exec *model.JobExecution) {
	snapshot := *exec
	r.send(ctx, "job_end", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordJobEnd(ctx, &snapshot)
	})
}

func (r *AsyncMetricRecorder) RecordChunkProcessed(ctx context.Context, report model.ChunkReport, elapsed time.Duration) {
	r.send(ctx, "chunk_processed", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordChunkProcessed(ctx, report, elapsed)
	})
}

func (r *AsyncMetricRecorder) RecordChunkLost(ctx context.Context, failure model.ChunkFailure) {
	r.send(ctx, "chunk_lost", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordChunkLost(ctx, failure)
	})
}

func (r *AsyncMetricRecorder) RecordRowRetry(ctx context.Context, reason string) {
	r.send(ctx, "row_retry", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordRowRetry(ctx, reason)
	})
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.send(ctx, "duration", func(ctx context.Context, rec coreMetrics.MetricRecorder) {
		rec.RecordDuration(ctx, name, duration, tags)
	})
}
