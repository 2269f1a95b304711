package sql

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
)

// JobRepository stores digest job executions in the digest_job_executions table.
type JobRepository struct {
	db      *stdsql.DB
	builder sq.StatementBuilderType
}

var _ repository.JobExecutionRepository = (*JobRepository)(nil)

// NewJobRepository creates a JobRepository. dbType selects the placeholder format.
func NewJobRepository(db *stdsql.DB, dbType string) *JobRepository {
	format := sq.PlaceholderFormat(sq.Question)
	if dbType == "postgres" {
		format = sq.Dollar
	}
	return &JobRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(format).RunWith(db),
	}
}

func (r *JobRepository) SaveJobExecution(ctx context.Context, exec *model.JobExecution) error {
	_, err := r.builder.Insert(jobExecutionTable).
		SetMap(jobExecutionValues(exec)).
		ExecContext(ctx)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("failed to save job execution '%s'", exec.ID), err, false, false)
	}
	return nil
}

func (r *JobRepository) UpdateJobExecution(ctx context.Context, exec *model.JobExecution) error {
	values := jobExecutionValues(exec)
	delete(values, "id")
	res, err := r.builder.Update(jobExecutionTable).
		SetMap(values).
		Where(sq.Eq{"id": exec.ID}).
		ExecContext(ctx)
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("failed to update job execution '%s'", exec.ID), err, false, false)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports changed rows, so an update that rewrites identical values affects none.
		return r.ensureExists(ctx, exec.ID)
	}
	return nil
}

func (r *JobRepository) ensureExists(ctx context.Context, id string) error {
	var one int
	err := r.builder.Select("1").
		From(jobExecutionTable).
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, stdsql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return exception.NewBatchError("job_repository", fmt.Sprintf("failed to look up job execution '%s'", id), err, false, false)
	}
	return nil
}

func (r *JobRepository) FindJobExecution(ctx context.Context, id string) (*model.JobExecution, error) {
	row := r.builder.Select(jobExecutionColumns...).
		From(jobExecutionTable).
		Where(sq.Eq{"id": id}).
		QueryRowContext(ctx)
	exec, err := scanJobExecution(row)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, exception.NewBatchError("job_repository", fmt.Sprintf("failed to find job execution '%s'", id), err, false, false)
	}
	return exec, nil
}

func (r *JobRepository) ListRecentJobExecutions(ctx context.Context, limit int) ([]*model.JobExecution, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.builder.Select(jobExecutionColumns...).
		From(jobExecutionTable).
		OrderBy("start_time DESC").
		Limit(uint64(limit)).
		QueryContext(ctx)
	if err != nil {
		return nil, exception.NewBatchError("job_repository", "failed to list job executions", err, false, false)
	}
	defer rows.Close()

	var result []*model.JobExecution
	for rows.Next() {
		exec, err := scanJobExecution(rows)
		if err != nil {
			return nil, exception.NewBatchError("job_repository", "failed to scan job execution", err, false, false)
		}
		result = append(result, exec)
	}
	return result, rows.Err()
}

func jobExecutionValues(exec *model.JobExecution) map[string]interface{} {
	var end stdsql.NullTime
	if exec.EndTime != nil {
		end = stdsql.NullTime{Time: *exec.EndTime, Valid: true}
	}
	return map[string]interface{}{
		"id":            exec.ID,
		"source":        exec.Source,
		"rows_per_task": exec.RowsPerTask,
		"status":        string(exec.Status),
		"chunks":        exec.Chunks,
		"created_count": exec.Created,
		"updated_count": exec.Updated,
		"error_count":   exec.Errors,
		"lost_count":    exec.Lost,
		"start_time":    exec.StartTime,
		"end_time":      end,
		"exit_message":  exec.ExitMessage,
	}
}

func scanJobExecution(s sq.RowScanner) (*model.JobExecution, error) {
	var (
		exec   model.JobExecution
		status string
		start  time.Time
		end    stdsql.NullTime
	)
	err := s.Scan(&exec.ID, &exec.Source, &exec.RowsPerTask, &status, &exec.Chunks,
		&exec.Created, &exec.Updated, &exec.Errors, &exec.Lost,
		&start, &end, &exec.ExitMessage)
	if err != nil {
		return nil, err
	}
	exec.Status = model.JobStatus(status)
	exec.StartTime = start.UTC()
	if end.Valid {
		t := end.Time.UTC()
		exec.EndTime = &t
	}
	return &exec, nil
}
