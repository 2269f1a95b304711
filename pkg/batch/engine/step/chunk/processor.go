// Package chunk processes one chunk: every row is normalized, its references resolved
// and its organization upserted, with per-row failure isolation.
package chunk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
	"github.com/tigerroll/orgdigestor/pkg/batch/component/reference"
	"github.com/tigerroll/orgdigestor/pkg/batch/component/upsert"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/metrics"
	"github.com/tigerroll/orgdigestor/pkg/batch/engine/step/retry"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

const moduleName = "processor"

// Processor turns a chunk into a ChunkReport. It holds no per-chunk state, so one
// Processor serves every chunk of a job concurrently.
type Processor struct {
	storage  storage.StorageConnection
	bucket   string
	store    repository.OrganizationStore
	policy   retry.RetryPolicy
	recorder metrics.MetricRecorder
	tracer   metrics.Tracer
}

func NewProcessor(
	chunkStorage storage.StorageConnection,
	store repository.OrganizationStore,
	policy retry.RetryPolicy,
	recorder metrics.MetricRecorder,
	tracer metrics.Tracer,
) *Processor {
	return &Processor{
		storage:  chunkStorage,
		store:    store,
		policy:   policy,
		recorder: recorder,
		tracer:   tracer,
	}
}

// Process digests every row of c in order and deletes the chunk object afterwards,
// whatever the outcome. Row failures are counted in the report. An error is returned
// only when the chunk itself cannot be read; it wraps exception.ErrChunkFailure.
func (p *Processor) Process(ctx context.Context, c model.Chunk) (model.ChunkReport, error) {
	ctx, endSpan := p.tracer.StartChunkSpan(ctx, c)
	defer endSpan()
	defer p.discard(ctx, c)

	start := time.Now()
	report := model.ChunkReport{ChunkIndex: c.Index}

	records, index, err := p.load(ctx, c)
	if err != nil {
		p.tracer.RecordError(ctx, moduleName, err)
		return report, err
	}
	report.Rows = len(records)

	resolver := reference.NewResolver(p.store)
	upserter := upsert.NewUpserter(p.store)
	for i, record := range records {
		row := index.Row(i+1, record)
		row.Chunk = c.Index
		outcome, err := p.processRow(ctx, resolver, upserter, row)
		if err != nil {
			logger.Debugf("Chunk %d: row %s failed: %v", c.Index, row.Key(), err)
			report.RecordError(row.Key(), err)
			continue
		}
		report.RecordOutcome(outcome)
	}

	duration := time.Since(start)
	p.recorder.RecordChunkProcessed(ctx, report, duration)
	logger.Infof("Processed %s in %s: created=%d updated=%d errors=%d.", c, duration, report.Created, report.Updated, report.Errors)
	return report, nil
}

// processRow runs resolution and upsert as one attempt under the retry policy.
func (p *Processor) processRow(ctx context.Context, resolver *reference.Resolver, upserter *upsert.Upserter, row model.SourceRow) (model.UpsertOutcome, error) {
	n, err := normalizeRow(row)
	if err != nil {
		return "", err
	}

	var (
		outcome model.UpsertOutcome
		lastErr error
	)
	_, err = retry.Do(ctx, p.policy, func(ctx context.Context) error {
		if lastErr != nil {
			p.recorder.RecordRowRetry(ctx, errorClass(lastErr))
		}
		fields := n.Fields
		if fields.CountryID, lastErr = resolver.Resolve(ctx, model.DimensionCountry, n.Country); lastErr != nil {
			return lastErr
		}
		if fields.IndustryID, lastErr = resolver.Resolve(ctx, model.DimensionIndustry, n.Industry); lastErr != nil {
			return lastErr
		}
		outcome, lastErr = upserter.Upsert(ctx, n.Key, fields)
		return lastErr
	})
	return outcome, err
}

func (p *Processor) load(ctx context.Context, c model.Chunk) ([][]string, model.HeaderIndex, error) {
	rc, err := p.storage.Download(ctx, p.bucket, c.Key)
	if err != nil {
		return nil, nil, exception.NewChunkFailure(moduleName, fmt.Sprintf("failed to open chunk '%s'", c.Key), err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, exception.NewChunkFailure(moduleName, fmt.Sprintf("failed to parse chunk '%s'", c.Key), err)
	}
	if len(records) == 0 {
		return nil, nil, exception.NewChunkFailure(moduleName, fmt.Sprintf("chunk '%s' has no header", c.Key), nil)
	}
	index, missing := model.MapHeader(records[0])
	if len(missing) > 0 {
		return nil, nil, exception.NewChunkFailure(moduleName, fmt.Sprintf("chunk '%s' lacks required columns %v", c.Key, missing), nil)
	}
	return records[1:], index, nil
}

// discard deletes the chunk object. The job context may already be done, so the
// deletion runs on a detached context.
func (p *Processor) discard(ctx context.Context, c model.Chunk) {
	if err := p.storage.DeleteObject(context.WithoutCancel(ctx), p.bucket, c.Key); err != nil {
		logger.Warnf("Failed to delete chunk object '%s': %v", c.Key, err)
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, exception.ErrTransientStore):
		return exception.TransientStoreException
	case errors.Is(err, context.DeadlineExceeded):
		return "context.DeadlineExceeded"
	default:
		return fmt.Sprintf("%T", err)
	}
}
