// Package sql persists organizations, reference entities and job history in a relational database.
package sql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
)

const moduleName = "store"

// Store implements repository.OrganizationStore with GORM.
// Reference uniqueness relies on the UNIQUE constraint on name, so concurrent
// get-or-create calls from different chunks converge on one row.
type Store struct {
	db *gorm.DB
}

var _ repository.OrganizationStore = (*Store)(nil)

// NewStore creates a Store over db. The schema must already be migrated.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetOrCreateCountry(ctx context.Context, name string) (model.EntityID, error) {
	return s.getOrCreate(ctx, &CountryEntity{Name: name}, CountryEntity{}.TableName(), name)
}

func (s *Store) GetOrCreateIndustry(ctx context.Context, name, slug string) (model.EntityID, error) {
	return s.getOrCreate(ctx, &IndustryEntity{Name: name, Slug: slug}, IndustryEntity{}.TableName(), name)
}

// getOrCreate inserts row unless name exists, then reads the stored ID back.
// The ID reported by the insert is ignored: on conflict it is not the existing row's.
func (s *Store) getOrCreate(ctx context.Context, row interface{}, table, name string) (model.EntityID, error) {
	db := s.db.WithContext(ctx).Session(&gorm.Session{SkipDefaultTransaction: true})

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(row).Error
	if err != nil {
		return 0, classify(fmt.Sprintf("failed to insert %s '%s'", table, name), err)
	}

	var ids []int64
	if err := db.Table(table).Where("name = ?", name).Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, classify(fmt.Sprintf("failed to read %s '%s'", table, name), err)
	}
	if len(ids) == 0 {
		// Visible only under isolation anomalies; another attempt sees the committed row.
		return 0, exception.NewTransientError(moduleName, fmt.Sprintf("%s '%s' not visible after insert", table, name), nil)
	}
	return model.EntityID(ids[0]), nil
}

func (s *Store) FindOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var e OrganizationEntity
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, classify(fmt.Sprintf("failed to find organization '%s'", id), err)
	}
	return toDomainOrganization(&e), nil
}

// UpsertOrganization inserts org or overwrites every field of the existing row in one transaction.
func (s *Store) UpsertOrganization(ctx context.Context, org *model.Organization) (model.UpsertOutcome, error) {
	entity := fromDomainOrganization(org)
	var outcome model.UpsertOutcome

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing OrganizationEntity
		err := tx.Select("id", "created_at").Where("id = ?", org.ID).Take(&existing).Error
		now := time.Now().UTC()
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			entity.CreatedAt, entity.UpdatedAt = now, now
			if err := tx.Create(entity).Error; err != nil {
				return err
			}
			outcome = model.OutcomeCreated
		case err != nil:
			return err
		default:
			entity.CreatedAt, entity.UpdatedAt = existing.CreatedAt, now
			if err := tx.Save(entity).Error; err != nil {
				return err
			}
			outcome = model.OutcomeUpdated
		}
		return nil
	})
	if err != nil {
		return "", classify(fmt.Sprintf("failed to upsert organization '%s'", org.ID), err)
	}
	return outcome, nil
}

func (s *Store) CountCountries(ctx context.Context) (int64, error) {
	return s.count(ctx, &CountryEntity{})
}

func (s *Store) CountIndustries(ctx context.Context) (int64, error) {
	return s.count(ctx, &IndustryEntity{})
}

func (s *Store) CountOrganizations(ctx context.Context) (int64, error) {
	return s.count(ctx, &OrganizationEntity{})
}

func (s *Store) count(ctx context.Context, m interface{}) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(m).Count(&n).Error; err != nil {
		return 0, classify("failed to count rows", err)
	}
	return n, nil
}

// duplicateMarkers identify unique violations of drivers without error translation.
var duplicateMarkers = []string{"UNIQUE constraint failed", "duplicate key value", "Duplicate entry"}

// classify wraps err in a BatchError. Contention and unique violations are retryable:
// a unique violation here means a concurrent writer inserted the same key first.
func classify(message string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return exception.NewTransientError(moduleName, message, err)
	}
	for _, m := range duplicateMarkers {
		if strings.Contains(err.Error(), m) {
			return exception.NewTransientError(moduleName, message, err)
		}
	}
	if exception.IsTransient(err) {
		return exception.NewTransientError(moduleName, message, err)
	}
	return exception.NewBatchError(moduleName, message, err, false, false)
}
