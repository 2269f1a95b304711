package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// JobRepository is an in-memory JobExecutionRepository.
type JobRepository struct {
	mu         sync.RWMutex
	executions map[string]model.JobExecution
}

var _ repository.JobExecutionRepository = (*JobRepository)(nil)

func NewJobRepository() *JobRepository {
	return &JobRepository{executions: make(map[string]model.JobExecution)}
}

// SaveJobExecution returns an error if an execution with the same ID already exists.
func (r *JobRepository) SaveJobExecution(ctx context.Context, exec *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executions[exec.ID]; exists {
		return fmt.Errorf("job execution with ID %s already exists", exec.ID)
	}
	r.executions[exec.ID] = *exec
	return nil
}

func (r *JobRepository) UpdateJobExecution(ctx context.Context, exec *model.JobExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.executions[exec.ID]; !exists {
		return repository.ErrNotFound
	}
	r.executions[exec.ID] = *exec
	return nil
}

func (r *JobRepository) FindJobExecution(ctx context.Context, id string) (*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, ok := r.executions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &exec, nil
}

func (r *JobRepository) ListRecentJobExecutions(ctx context.Context, limit int) ([]*model.JobExecution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*model.JobExecution, 0, len(r.executions))
	for _, exec := range r.executions {
		e := exec
		all = append(all, &e)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].StartTime.After(all[j].StartTime)
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
