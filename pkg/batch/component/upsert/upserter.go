// Package upsert validates organization records and writes them to the store.
package upsert

import (
	"context"
	"strings"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// Upserter creates or replaces organizations by primary key. It never retries.
type Upserter struct {
	store repository.OrganizationStore
}

func NewUpserter(store repository.OrganizationStore) *Upserter {
	return &Upserter{store: store}
}

// Upsert validates fields and stores them under primaryKey, reporting whether the
// record was created or updated. Invalid input returns *exception.ValidationError
// without touching the store.
func (u *Upserter) Upsert(ctx context.Context, primaryKey string, fields model.OrganizationFields) (model.UpsertOutcome, error) {
	fields.Name = strings.TrimSpace(fields.Name)
	if err := Validate(primaryKey, fields); err != nil {
		return "", err
	}
	return u.store.UpsertOrganization(ctx, &model.Organization{ID: primaryKey, OrganizationFields: fields})
}
