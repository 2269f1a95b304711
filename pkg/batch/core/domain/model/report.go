package model

import "fmt"

// ChunkReport carries the outcome counters of one processed chunk.
type ChunkReport struct {
	ChunkIndex    int
	Rows          int
	Created       int
	Updated       int
	Errors        int
	ErrorMessages []string
}

// RecordOutcome counts a successful upsert.
func (r *ChunkReport) RecordOutcome(o UpsertOutcome) {
	switch o {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	}
}

// RecordError counts a failed row and appends its message.
func (r *ChunkReport) RecordError(key string, err error) {
	r.Errors++
	r.ErrorMessages = append(r.ErrorMessages, fmt.Sprintf("row %s: %v", key, err))
}

// ChunkFailure describes a chunk that was lost as a whole.
type ChunkFailure struct {
	ChunkIndex int
	Key        string
	Message    string
}

// SummaryReport aggregates every chunk report of a job.
// Lost chunks are reported apart from row errors and never resubmitted.
type SummaryReport struct {
	JobID         string
	Chunks        int
	Created       int
	Updated       int
	Errors        int
	ErrorMessages []string
	LostChunks    []ChunkFailure
}

// Complete reports whether every chunk produced a report.
func (s *SummaryReport) Complete() bool {
	return len(s.LostChunks) == 0
}

// Processed is the number of rows that reached a final outcome.
func (s *SummaryReport) Processed() int {
	return s.Created + s.Updated + s.Errors
}

func (s *SummaryReport) String() string {
	return fmt.Sprintf("job %s: chunks=%d created=%d updated=%d errors=%d lost=%d",
		s.JobID, s.Chunks, s.Created, s.Updated, s.Errors, len(s.LostChunks))
}
