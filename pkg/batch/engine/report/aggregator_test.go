package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

func chunkReports() []model.ChunkReport {
	return []model.ChunkReport{
		{ChunkIndex: 0, Rows: 2, Created: 2},
		{ChunkIndex: 1, Rows: 3, Created: 1, Updated: 1, Errors: 1, ErrorMessages: []string{"row A3: name is required"}},
		{ChunkIndex: 2, Rows: 2, Updated: 1, Errors: 1, ErrorMessages: []string{"row A7: database is locked"}},
	}
}

func TestAggregateSumsCounters(t *testing.T) {
	s := Aggregate(chunkReports())

	assert.Equal(t, 3, s.Chunks)
	assert.Equal(t, 3, s.Created)
	assert.Equal(t, 2, s.Updated)
	assert.Equal(t, 2, s.Errors)
	assert.Len(t, s.ErrorMessages, 2)
	assert.Equal(t, 7, s.Processed())
}

func TestAggregateSingleReportIsIdentity(t *testing.T) {
	r := chunkReports()[1]
	s := Aggregate([]model.ChunkReport{r})

	assert.Equal(t, 1, s.Chunks)
	assert.Equal(t, r.Created, s.Created)
	assert.Equal(t, r.Updated, s.Updated)
	assert.Equal(t, r.Errors, s.Errors)
	assert.Equal(t, r.ErrorMessages, s.ErrorMessages)
}

func TestAggregateIsOrderIndependent(t *testing.T) {
	in := chunkReports()
	reversed := []model.ChunkReport{in[2], in[0], in[1]}

	a, b := Aggregate(in), Aggregate(reversed)
	assert.Equal(t, a.Created, b.Created)
	assert.Equal(t, a.Updated, b.Updated)
	assert.Equal(t, a.Errors, b.Errors)
	assert.ElementsMatch(t, a.ErrorMessages, b.ErrorMessages)
}

func TestAggregateEmptyIsZero(t *testing.T) {
	assert.Equal(t, model.SummaryReport{}, Aggregate(nil))
}

func TestEmptyReportIsIdentity(t *testing.T) {
	in := chunkReports()
	withEmpty := append([]model.ChunkReport{{ChunkIndex: 9}}, in...)

	a, b := Aggregate(in), Aggregate(withEmpty)
	assert.Equal(t, a.Created, b.Created)
	assert.Equal(t, a.Updated, b.Updated)
	assert.Equal(t, a.Errors, b.Errors)
	assert.Equal(t, a.ErrorMessages, b.ErrorMessages)
}
