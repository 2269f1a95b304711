// Package partition drives a digest job: split the source, fan the chunks out to
// processors, fan the reports back in and aggregate them.
package partition

import (
	"context"
	"fmt"
	"sort"

	"github.com/tigerroll/orgdigestor/pkg/batch/component/partitioner"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/ports"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/report"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const moduleName = "orchestrator"

// ChunkProcessor processes one chunk.
type ChunkProcessor interface {
	Process(ctx context.Context, chunk model.Chunk) (model.ChunkReport, error)
}

// Orchestrator runs digest jobs. Job history and report export are optional.
type Orchestrator struct {
	splitter   partitioner.Splitter
	processor  ChunkProcessor
	dispatcher Dispatcher
	notifier   ports.Notifier
	recorder   metrics.MetricRecorder
	tracer     metrics.Tracer
	history    repository.JobExecutionRepository
	exporter   ports.ReportExporter
}

func NewOrchestrator(
	splitter partitioner.Splitter,
	processor ChunkProcessor,
	dispatcher Dispatcher,
	notifier ports.Notifier,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Orchestrator {
	return &Orchestrator{
		splitter:   splitter,
		processor:  processor,
		dispatcher: dispatcher,
		notifier:   notifier,
		recorder:   recorder,
		tracer:     tracer,
	}
}

// WithJobHistory records every run in history.
func (o *Orchestrator) WithJobHistory(history repository.JobExecutionRepository) *Orchestrator {
	o.history = history
	return o
}

// WithReportExporter hands every summary and its chunk reports to exporter.
func (o *Orchestrator) WithReportExporter(exporter ports.ReportExporter) *Orchestrator {
	o.exporter = exporter
	return o
}

// Run digests source in chunks of rowsPerTask rows.
//
// A split failure fails the job before anything is dispatched. Otherwise Run always
// returns a summary: row errors are counted in it, and chunks that produced no report
// are listed in LostChunks without being resubmitted.
func (o *Orchestrator) Run(ctx context.Context, source string, rowsPerTask int) (*model.SummaryReport, error) {
	exec := model.NewJobExecution(source, rowsPerTask)
	ctx, endSpan := o.tracer.StartJobSpan(ctx, exec)
	defer endSpan()

	o.recorder.RecordJobStart(ctx, exec)
	o.saveHistory(ctx, exec)
	logger.Infof("Job %s started: source '%s', rows_per_task %d.", exec.ID, source, rowsPerTask)

	chunks, err := o.splitter.Split(ctx, exec.ID, source, rowsPerTask)
	if err != nil {
		o.tracer.RecordError(ctx, moduleName, err)
		o.finish(ctx, exec, nil, err)
		return nil, err
	}

	units := make([]Unit, len(chunks))
	for i, c := range chunks {
		c := c
		units[i] = Unit{Chunk: c, Run: func(ctx context.Context) (model.ChunkReport, error) {
			return o.processor.Process(ctx, c)
		}}
	}
	results := o.dispatcher.Dispatch(ctx, units)

	summary := o.collect(ctx, exec.ID, chunks, results)
	o.export(ctx, summary, results)
	o.finish(ctx, exec, summary, nil)
	o.notify(ctx, summary)
	return summary, nil
}

// collect aggregates the reports in arrival order and records every missing one as lost.
func (o *Orchestrator) collect(ctx context.Context, jobID string, chunks []model.Chunk, results []UnitResult) *model.SummaryReport {
	reports := make([]model.ChunkReport, 0, len(results))
	seen := make(map[int]bool, len(results))
	var lost []model.ChunkFailure

	for _, r := range results {
		seen[r.Chunk.Index] = true
		if r.Err != nil {
			lost = append(lost, model.ChunkFailure{ChunkIndex: r.Chunk.Index, Key: r.Chunk.Key, Message: r.Err.Error()})
			continue
		}
		reports = append(reports, r.Report)
	}
	for _, c := range chunks {
		if !seen[c.Index] {
			lost = append(lost, model.ChunkFailure{ChunkIndex: c.Index, Key: c.Key, Message: "dispatcher returned no result"})
		}
	}
	sort.Slice(lost, func(i, j int) bool { return lost[i].ChunkIndex < lost[j].ChunkIndex })

	for _, l := range lost {
		logger.Errorf("Job %s: chunk %d lost: %s", jobID, l.ChunkIndex, l.Message)
		o.recorder.RecordChunkLost(ctx, l)
		o.tracer.RecordError(ctx, moduleName, exception.NewChunkFailure(moduleName, fmt.Sprintf("chunk %d lost", l.ChunkIndex), nil))
	}

	summary := report.Aggregate(reports)
	summary.JobID = jobID
	summary.Chunks = len(chunks)
	summary.LostChunks = lost
	return &summary
}

func (o *Orchestrator) finish(ctx context.Context, exec *model.JobExecution, summary *model.SummaryReport, err error) {
	exec.Finish(summary, err)
	o.recorder.RecordJobEnd(ctx, exec)
	o.updateHistory(ctx, exec)

	if err != nil {
		logger.Errorf("Job %s failed: %v", exec.ID, err)
		return
	}
	logger.Infof("Job %s finished with status %s: %s", exec.ID, exec.Status, summary)
}

// notify delivers the summary. Notifier errors and panics are logged and swallowed.
func (o *Orchestrator) notify(ctx context.Context, summary *model.SummaryReport) {
	if o.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Notifier panicked for job %s: %v", summary.JobID, r)
		}
	}()
	if err := o.notifier.NotifyDigestCompletion(ctx, summary); err != nil {
		logger.Warnf("Failed to notify completion of job %s: %v", summary.JobID, err)
	}
}

func (o *Orchestrator) export(ctx context.Context, summary *model.SummaryReport, results []UnitResult) {
	if o.exporter == nil {
		return
	}
	reports := make([]model.ChunkReport, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			reports = append(reports, r.Report)
		}
	}
	if err := o.exporter.ExportReport(ctx, summary, reports); err != nil {
		logger.Warnf("Failed to export report of job %s: %v", summary.JobID, err)
	}
}

func (o *Orchestrator) saveHistory(ctx context.Context, exec *model.JobExecution) {
	if o.history == nil {
		return
	}
	if err := o.history.SaveJobExecution(ctx, exec); err != nil {
		logger.Warnf("Failed to record start of job %s: %v", exec.ID, err)
	}
}

func (o *Orchestrator) updateHistory(ctx context.Context, exec *model.JobExecution) {
	if o.history == nil {
		return
	}
	if err := o.history.UpdateJobExecution(context.WithoutCancel(ctx), exec); err != nil {
		logger.Warnf("Failed to record end of job %s: %v", exec.ID, err)
	}
}
