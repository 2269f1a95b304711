package test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// MockOrganizationStore is a testify mock of repository.OrganizationStore.
type MockOrganizationStore struct {
	mock.Mock
}

var _ repository.OrganizationStore = (*MockOrganizationStore)(nil)

func (m *MockOrganizationStore) GetOrCreateCountry(ctx context.Context, name string) (model.EntityID, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.EntityID), args.Error(1)
}

func (m *MockOrganizationStore) GetOrCreateIndustry(ctx context.Context, name, slug string) (model.EntityID, error) {
	args := m.Called(ctx, name, slug)
	return args.Get(0).(model.EntityID), args.Error(1)
}

func (m *MockOrganizationStore) FindOrganization(ctx context.Context, id string) (*model.Organization, error) {
	args := m.Called(ctx, id)
	org, _ := args.Get(0).(*model.Organization)
	return org, args.Error(1)
}

func (m *MockOrganizationStore) UpsertOrganization(ctx context.Context, org *model.Organization) (model.UpsertOutcome, error) {
	args := m.Called(ctx, org)
	return args.Get(0).(model.UpsertOutcome), args.Error(1)
}

func (m *MockOrganizationStore) CountCountries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrganizationStore) CountIndustries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrganizationStore) CountOrganizations(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// FlakyStore wraps a store and fails the first Failures upserts of each organization ID
// with Err before delegating.
type FlakyStore struct {
	repository.OrganizationStore
	Failures int
	Err      error

	mu       sync.Mutex
	attempts map[string]int
}

func NewFlakyStore(inner repository.OrganizationStore, failures int, err error) *FlakyStore {
	return &FlakyStore{OrganizationStore: inner, Failures: failures, Err: err, attempts: make(map[string]int)}
}

func (f *FlakyStore) UpsertOrganization(ctx context.Context, org *model.Organization) (model.UpsertOutcome, error) {
	f.mu.Lock()
	f.attempts[org.ID]++
	n := f.attempts[org.ID]
	f.mu.Unlock()

	if n <= f.Failures {
		return "", f.Err
	}
	return f.OrganizationStore.UpsertOrganization(ctx, org)
}

// Attempts returns how many upserts were attempted for id.
func (f *FlakyStore) Attempts(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}
