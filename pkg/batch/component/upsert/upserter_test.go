package upsert

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/repository/inmemory"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/test"
)

func validFields() model.OrganizationFields {
	employees := 42
	return model.OrganizationFields{
		Name:       "Acme",
		Website:    "https://acme.example.com",
		CountryID:  1,
		IndustryID: 2,
		Employees:  &employees,
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	u := NewUpserter(store)

	outcome, err := u.Upsert(ctx, "A1", validFields())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeCreated, outcome)
	first, err := store.FindOrganization(ctx, "A1")
	require.NoError(t, err)

	outcome, err = u.Upsert(ctx, "A1", validFields())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeUpdated, outcome)
	second, err := store.FindOrganization(ctx, "A1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestUpsertRejectsInvalidFieldsWithoutStoreAccess(t *testing.T) {
	store := new(test.MockOrganizationStore)
	u := NewUpserter(store)

	negative := -1
	fields := model.OrganizationFields{Name: " ", Website: "acme.example.com", Employees: &negative}
	_, err := u.Upsert(context.Background(), strings.Repeat("x", 16), fields)

	var verr *exception.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ErrorIs(t, err, exception.ErrValidation)
	assert.False(t, exception.IsTransient(err))
	for _, f := range []string{"identifier", "name", "country", "industry", "website", "employees"} {
		assert.True(t, verr.HasField(f), f)
	}
	store.AssertNotCalled(t, "UpsertOrganization", mock.Anything, mock.Anything)
}

func TestUpsertPassesStoreErrorsThrough(t *testing.T) {
	store := new(test.MockOrganizationStore)
	transient := exception.NewTransientError("store", "busy", nil)
	store.On("UpsertOrganization", mock.Anything, mock.MatchedBy(func(o *model.Organization) bool {
		return o.ID == "A1" && o.Name == "Acme"
	})).Return(model.UpsertOutcome(""), transient).Once()

	fields := validFields()
	fields.Name = "  Acme "
	_, err := NewUpserter(store).Upsert(context.Background(), "A1", fields)
	assert.ErrorIs(t, err, exception.ErrTransientStore)
	store.AssertExpectations(t)
}

func TestValidateWebsite(t *testing.T) {
	cases := map[string]bool{
		"":                         true,
		"https://acme.example.com": true,
		"http://acme.io/about":     true,
		"ftp://acme.example.com":   false,
		"acme.example.com":         false,
		"not a url":                false,
	}
	for website, ok := range cases {
		fields := validFields()
		fields.Website = website
		err := Validate("A1", fields)
		assert.Equal(t, ok, err == nil, website)
	}
}

func TestValidateColumnLimits(t *testing.T) {
	prefix := "https://acme.example.com/"

	fields := validFields()
	fields.Website = prefix + strings.Repeat("a", model.MaxWebsiteLength-len(prefix))
	assert.NoError(t, Validate("A1", fields))

	fields.Website += "a"
	var verr *exception.ValidationError
	require.ErrorAs(t, Validate("A1", fields), &verr)
	assert.Equal(t, []exception.FieldError{{Field: "website", Reason: "exceeds 200 characters"}}, verr.Fields)

	fields = validFields()
	employees := model.MaxEmployees
	fields.Employees = &employees
	assert.NoError(t, Validate("A1", fields))

	employees++
	require.ErrorAs(t, Validate("A1", fields), &verr)
	assert.Equal(t, "employees", verr.Fields[0].Field)
}
