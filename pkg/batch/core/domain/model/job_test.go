package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobExecutionFinish(t *testing.T) {
	j := NewJobExecution("orgs.csv", 2)
	require.NotEmpty(t, j.ID)
	assert.Equal(t, JobStatusStarted, j.Status)
	assert.False(t, j.Status.IsFinished())

	j.Finish(&SummaryReport{Chunks: 2, Created: 2, Errors: 1}, nil)
	assert.Equal(t, JobStatusCompleted, j.Status)
	assert.Equal(t, 2, j.Created)
	assert.NotNil(t, j.EndTime)

	lost := NewJobExecution("orgs.csv", 2)
	lost.Finish(&SummaryReport{Chunks: 2, LostChunks: []ChunkFailure{{ChunkIndex: 1, Message: "boom"}}}, nil)
	assert.Equal(t, JobStatusIncomplete, lost.Status)
	assert.Equal(t, 1, lost.Lost)
	assert.Equal(t, "boom", lost.ExitMessage)

	failed := NewJobExecution("orgs.csv", 2)
	failed.Finish(nil, errors.New("malformed"))
	assert.Equal(t, JobStatusFailed, failed.Status)
	assert.Equal(t, "malformed", failed.ExitMessage)
}

func TestChunkReportRecording(t *testing.T) {
	var r ChunkReport
	r.RecordOutcome(OutcomeCreated)
	r.RecordOutcome(OutcomeUpdated)
	r.RecordOutcome(OutcomeUpdated)
	r.RecordError("A3", errors.New("name is required"))

	assert.Equal(t, 1, r.Created)
	assert.Equal(t, 2, r.Updated)
	assert.Equal(t, 1, r.Errors)
	assert.Equal(t, []string{"row A3: name is required"}, r.ErrorMessages)
}

func TestSourceRowKey(t *testing.T) {
	row := SourceRow{Chunk: 1, Line: 4, Values: map[Column]string{ColumnName: "Acme"}}
	assert.Equal(t, "chunk 1 line 4", row.Key())
	row.Values[ColumnIdentifier] = "A1"
	assert.Equal(t, "A1", row.Key())
}

func TestMapHeaderAcceptsExportAndCanonicalNames(t *testing.T) {
	idx, missing := MapHeader([]string{"\ufeffIndex", "Organization Id", "Name", "Country", "Industry", "Number of employees"})
	assert.Empty(t, missing)
	assert.Equal(t, 1, idx[ColumnIdentifier])
	assert.Equal(t, 5, idx[ColumnEmployees])

	idx, missing = MapHeader([]string{"identifier", "NAME", "country"})
	assert.Equal(t, []Column{ColumnIndustry}, missing)

	row := idx.Row(1, []string{" A1 ", "Acme", "US"})
	assert.Equal(t, "A1", row.Key())
	_, ok := row.Value(ColumnIndustry)
	assert.False(t, ok)
}
