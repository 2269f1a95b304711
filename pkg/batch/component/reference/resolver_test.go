package reference

import (
	"context"
	"errors"
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

func TestResolveCachesWithinResolver(t *testing.T) {
	store := new(test.MockOrganizationStore)
	store.On("GetOrCreateCountry", mock.Anything, "United States").Return(model.EntityID(7), nil).Once()
	store.On("GetOrCreateIndustry", mock.Anything, "Information Technology", "information-technology").Return(model.EntityID(3), nil).Once()

	r := NewResolver(store)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		id, err := r.Resolve(ctx, model.DimensionCountry, "  United   States ")
		require.NoError(t, err)
		assert.Equal(t, model.EntityID(7), id)

		id, err = r.Resolve(ctx, model.DimensionIndustry, "Information Technology")
		require.NoError(t, err)
		assert.Equal(t, model.EntityID(3), id)
	}
	assert.Equal(t, 2, r.Cached())
	store.AssertExpectations(t)
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	store := new(test.MockOrganizationStore)
	transient := exception.NewTransientError("store", "busy", errors.New("database is locked"))
	store.On("GetOrCreateCountry", mock.Anything, "US").Return(model.EntityID(0), transient).Once()
	store.On("GetOrCreateCountry", mock.Anything, "US").Return(model.EntityID(1), nil).Once()

	r := NewResolver(store)
	_, err := r.Resolve(context.Background(), model.DimensionCountry, "US")
	assert.ErrorIs(t, err, exception.ErrTransientStore)

	id, err := r.Resolve(context.Background(), model.DimensionCountry, "US")
	require.NoError(t, err)
	assert.Equal(t, model.EntityID(1), id)
	store.AssertExpectations(t)
}

func TestResolveRejectsEmptyName(t *testing.T) {
	r := NewResolver(new(test.MockOrganizationStore))
	_, err := r.Resolve(context.Background(), model.DimensionIndustry, "   ")
	var verr *exception.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.HasField("industry"))
}

func TestResolveCountsCharactersNotBytes(t *testing.T) {
	store := inmemory.NewStore()
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), model.DimensionCountry, strings.Repeat("é", model.MaxNameLength))
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), model.DimensionIndustry, strings.Repeat("業", model.MaxNameLength+1))
	assert.ErrorIs(t, err, exception.ErrValidation)
}

func TestSeparateResolversShareOneEntity(t *testing.T) {
	store := inmemory.NewStore()
	ctx := context.Background()

	a, err := NewResolver(store).Resolve(ctx, model.DimensionIndustry, "Tech")
	require.NoError(t, err)
	b, err := NewResolver(store).Resolve(ctx, model.DimensionIndustry, "Tech")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	n, _ := store.CountIndustries(ctx)
	assert.EqualValues(t, 1, n)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "information-technology", Slugify("Information Technology"))
	assert.Equal(t, "oil-gas", Slugify("Oil & Gas"))
	assert.Equal(t, "e-commerce", Slugify("--E-Commerce--"))
	assert.Equal(t, "", Slugify("&&"))
}
