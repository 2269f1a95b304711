// Package report folds chunk reports into the summary of a job.
package report

import "github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"

// Aggregate sums the counters of reports and concatenates their error messages.
// Counters do not depend on the order of reports; message order follows it.
// An empty input yields the zero summary.
func Aggregate(reports []model.ChunkReport) model.SummaryReport {
	var s model.SummaryReport
	for _, r := range reports {
		Merge(&s, r)
	}
	return s
}

// Merge adds one chunk report to s.
func Merge(s *model.SummaryReport, r model.ChunkReport) {
	s.Chunks++
	s.Created += r.Created
	s.Updated += r.Updated
	s.Errors += r.Errors
	s.ErrorMessages = append(s.ErrorMessages, r.ErrorMessages...)
}
