package partition

import (
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
	"github.com/tigerroll/orgdigestor/pkg/batch/component/partitioner"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/chunk"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/retry"
)

// ChunkStorageParams resolves the storage connection holding chunk objects.
type ChunkStorageParams struct {
	fx.In
	Config   *config.Config
	Resolver *storage.ConnectionResolver
}

// NewChunkStorageProvider resolves chunk_storage_ref.
func NewChunkStorageProvider(p ChunkStorageParams) (storage.StorageConnection, error) {
	return p.Resolver.Resolve(p.Config.Digestor.Infrastructure.ChunkStorageRef)
}

// NewRetryPolicyProvider builds the row retry policy from the batch section.
func NewRetryPolicyProvider(cfg *config.BatchConfig) retry.RetryPolicy {
	r := cfg.ItemRetry
	return retry.NewDefaultRetryPolicyFactory().Create(r.MaxAttempts, time.Duration(r.InitialInterval)*time.Millisecond, r.RetryableExceptions)
}

// NewDispatcherProvider bounds concurrency with batch.max_workers.
func NewDispatcherProvider(cfg *config.BatchConfig) Dispatcher {
	return NewGoroutineDispatcher(cfg.MaxWorkers)
}

// OrchestratorParams defines the dependencies of the Orchestrator.
type OrchestratorParams struct {
	fx.In
	Splitter   partitioner.Splitter
	Processor  ChunkProcessor
	Dispatcher Dispatcher
	Notifier   ports.Notifier
	Recorder   metrics.MetricRecorder
	Tracer     metrics.Tracer
	History    repository.JobExecutionRepository `optional:"true"`
	Exporter   ports.ReportExporter              `optional:"true"`
}

func NewOrchestratorProvider(p OrchestratorParams) *Orchestrator {
	o := NewOrchestrator(p.Splitter, p.Processor, p.Dispatcher, p.Notifier, p.Recorder, p.Tracer)
	if p.History != nil {
		o.WithJobHistory(p.History)
	}
	if p.Exporter != nil {
		o.WithReportExporter(p.Exporter)
	}
	return o
}

// Module wires the digest pipeline from splitter to orchestrator.
var Module = fx.Options(
	fx.Provide(
		NewChunkStorageProvider,
		NewRetryPolicyProvider,
		NewDispatcherProvider,
		fx.Annotate(partitioner.NewCSVSplitter, fx.As(new(partitioner.Splitter))),
		fx.Annotate(chunk.NewProcessor, fx.As(new(ChunkProcessor))),
		NewOrchestratorProvider,
	),
)
