// Package repository declares the persistence boundaries of the digestor.
package repository

import (
	"context"
	"errors"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ReferenceStore resolves reference entities by normalized name.
// Both methods are idempotent and safe for concurrent callers: concurrent calls with the same
// name return the same ID and create at most one entity.
type ReferenceStore interface {
	GetOrCreateCountry(ctx context.Context, name string) (model.EntityID, error)
	GetOrCreateIndustry(ctx context.Context, name, slug string) (model.EntityID, error)
}

// OrganizationStore is the persistent store the pipeline reconciles against.
type OrganizationStore interface {
	ReferenceStore

	// FindOrganization returns ErrNotFound when id is unknown.
	FindOrganization(ctx context.Context, id string) (*model.Organization, error)
	// UpsertOrganization creates org when its ID is unseen and otherwise overwrites every field.
	UpsertOrganization(ctx context.Context, org *model.Organization) (model.UpsertOutcome, error)

	CountCountries(ctx context.Context) (int64, error)
	CountIndustries(ctx context.Context) (int64, error)
	CountOrganizations(ctx context.Context) (int64, error)
}

// JobExecutionRepository persists the history of digest runs.
type JobExecutionRepository interface {
	SaveJobExecution(ctx context.Context, exec *model.JobExecution) error
	UpdateJobExecution(ctx context.Context, exec *model.JobExecution) error
	// FindJobExecution returns ErrNotFound when id is unknown.
	FindJobExecution(ctx context.Context, id string) (*model.JobExecution, error)
	// ListRecentJobExecutions returns up to limit executions, newest first.
	ListRecentJobExecutions(ctx context.Context, limit int) ([]*model.JobExecution, error)
}
