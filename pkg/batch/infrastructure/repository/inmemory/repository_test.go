package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

func TestStoreReferencesAreUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	ids := make([]model.EntityID, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], _ = s.GetOrCreateIndustry(ctx, "Tech", "tech")
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, _ := s.CountIndustries(ctx)
	assert.EqualValues(t, 1, n)

	ind, ok := s.Industry("Tech")
	require.True(t, ok)
	assert.Equal(t, "tech", ind.Slug)
}

func TestStoreUpsert(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	org := &model.Organization{ID: "A1", OrganizationFields: model.OrganizationFields{Name: "Acme"}}
	outcome, err := s.UpsertOrganization(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, outcome)

	org.Name = "Acme Corp"
	outcome, err = s.UpsertOrganization(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUpdated, outcome)

	stored, err := s.FindOrganization(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", stored.Name)

	_, err = s.FindOrganization(ctx, "A2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestJobRepository(t *testing.T) {
	ctx := context.Background()
	r := NewJobRepository()

	older := model.NewJobExecution("a.csv", 1)
	older.StartTime = older.StartTime.Add(-time.Minute)
	newer := model.NewJobExecution("b.csv", 1)
	require.NoError(t, r.SaveJobExecution(ctx, older))
	require.NoError(t, r.SaveJobExecution(ctx, newer))
	assert.Error(t, r.SaveJobExecution(ctx, newer))

	newer.Finish(&model.SummaryReport{Created: 1}, nil)
	require.NoError(t, r.UpdateJobExecution(ctx, newer))

	found, err := r.FindJobExecution(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, found.Status)

	list, err := r.ListRecentJobExecutions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
}
