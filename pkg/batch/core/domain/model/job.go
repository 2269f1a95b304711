package model

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the state of a digest job.
type JobStatus string

const (
	JobStatusStarted   JobStatus = "STARTED"
	JobStatusCompleted JobStatus = "COMPLETED"
	// JobStatusIncomplete means the job finished but at least one chunk was lost.
	JobStatusIncomplete JobStatus = "INCOMPLETE"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsFinished reports whether s is a terminal state.
func (s JobStatus) IsFinished() bool {
	return s != JobStatusStarted
}

// JobExecution is the persisted history of one digest run.
type JobExecution struct {
	ID          string
	Source      string
	RowsPerTask int
	Status      JobStatus
	Chunks      int
	Created     int
	Updated     int
	Errors      int
	Lost        int
	StartTime   time.Time
	EndTime     *time.Time
	ExitMessage string
}

// NewJobExecution starts a job execution with a fresh ID.
func NewJobExecution(source string, rowsPerTask int) *JobExecution {
	return &JobExecution{
		ID:          uuid.NewString(),
		Source:      source,
		RowsPerTask: rowsPerTask,
		Status:      JobStatusStarted,
		StartTime:   time.Now().UTC(),
	}
}

// Finish records the terminal state from the summary or the failure.
func (j *JobExecution) Finish(summary *SummaryReport, err error) {
	now := time.Now().UTC()
	j.EndTime = &now

	if err != nil {
		j.Status = JobStatusFailed
		j.ExitMessage = err.Error()
		return
	}
	j.Chunks = summary.Chunks
	j.Created = summary.Created
	j.Updated = summary.Updated
	j.Errors = summary.Errors
	j.Lost = len(summary.LostChunks)
	j.Status = JobStatusCompleted
	if !summary.Complete() {
		j.Status = JobStatusIncomplete
		j.ExitMessage = summary.LostChunks[0].Message
	}
}
