// Package ports declares outbound collaborators of the digest pipeline.
package ports

import (
	"context"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// Notifier receives the summary of a finished digest job. Delivery is fire-and-forget:
// a failing notifier never changes the report.
type Notifier interface {
	NotifyDigestCompletion(ctx context.Context, summary *model.SummaryReport) error
}

// ReportExporter persists the outcome of a job for later analysis.
type ReportExporter interface {
	ExportReport(ctx context.Context, summary *model.SummaryReport, chunks []model.ChunkReport) error
}
