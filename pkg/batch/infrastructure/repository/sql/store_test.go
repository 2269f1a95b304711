package sql_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
	sqlRepo "github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/test"
)

func newStore(t *testing.T) *sqlRepo.Store {
	t.Helper()
	return sqlRepo.NewStore(test.NewMigratedSQLiteConnection(t).GetGormDB())
}

func TestGetOrCreateReferenceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	us1, err := store.GetOrCreateCountry(ctx, "US")
	require.NoError(t, err)
	us2, err := store.GetOrCreateCountry(ctx, "US")
	require.NoError(t, err)
	fr, err := store.GetOrCreateCountry(ctx, "FR")
	require.NoError(t, err)

	assert.Equal(t, us1, us2)
	assert.NotEqual(t, us1, fr)
	n, err := store.CountCountries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestGetOrCreateIndustryConcurrentCallersShareOneRow(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	const callers = 8
	ids := make([]model.EntityID, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = store.GetOrCreateIndustry(ctx, "Tech", "tech")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	n, err := store.CountIndustries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestUpsertOrganizationCreatesThenOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	country, err := store.GetOrCreateCountry(ctx, "US")
	require.NoError(t, err)
	industry, err := store.GetOrCreateIndustry(ctx, "Tech", "tech")
	require.NoError(t, err)

	founded := time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)
	employees := 10
	org := &model.Organization{
		ID: "A1",
		OrganizationFields: model.OrganizationFields{
			Name:       "Acme",
			Website:    "https://acme.example.com",
			CountryID:  country,
			IndustryID: industry,
			Founded:    &founded,
			Employees:  &employees,
		},
	}

	outcome, err := store.UpsertOrganization(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, outcome)

	org.Name = "Acme Corp"
	org.Employees = nil
	outcome, err = store.UpsertOrganization(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUpdated, outcome)

	stored, err := store.FindOrganization(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", stored.Name)
	assert.Nil(t, stored.Employees)
	require.NotNil(t, stored.Founded)
	assert.True(t, founded.Equal(*stored.Founded))

	n, err := store.CountOrganizations(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFindOrganizationNotFound(t *testing.T) {
	_, err := newStore(t).FindOrganization(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func setupMockStore(t *testing.T) (*sqlRepo.Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	return sqlRepo.NewStore(gormDB), mock
}

func TestStoreClassifiesContentionAsTransient(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `countries`")).
		WillReturnError(errors.New("Error 1213: Deadlock found when trying to get lock"))

	_, err := store.GetOrCreateCountry(context.Background(), "US")
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrTransientStore)
	assert.True(t, exception.IsTransient(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreClassifiesSchemaErrorsAsPermanent(t *testing.T) {
	store, mock := setupMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT")).
		WillReturnError(errors.New("Error 1054: Unknown column 'created_at'"))
	mock.ExpectRollback()

	_, err := store.UpsertOrganization(context.Background(), &model.Organization{ID: "A1"})
	require.Error(t, err)
	assert.False(t, exception.IsTransient(err))
	assert.Contains(t, err.Error(), "A1")
	assert.NoError(t, mock.ExpectationsWereMet())
}
