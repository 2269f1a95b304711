// Package inmemory provides map-backed implementations of the digestor repositories.
// It backs dry runs and tests where persistence is not required.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/repository"
)

// Store is an in-memory OrganizationStore. Reference names are unique per dimension.
type Store struct {
	mu            sync.RWMutex
	countries     map[string]model.EntityID
	industries    map[string]*model.Industry
	organizations map[string]*storedOrganization
	nextID        model.EntityID
}

type storedOrganization struct {
	org       model.Organization
	createdAt time.Time
	updatedAt time.Time
}

var _ repository.OrganizationStore = (*Store)(nil)

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		countries:     make(map[string]model.EntityID),
		industries:    make(map[string]*model.Industry),
		organizations: make(map[string]*storedOrganization),
	}
}

func (s *Store) GetOrCreateCountry(ctx context.Context, name string) (model.EntityID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.countries[name]; ok {
		return id, nil
	}
	s.nextID++
	s.countries[name] = s.nextID
	return s.nextID, nil
}

func (s *Store) GetOrCreateIndustry(ctx context.Context, name, slug string) (model.EntityID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ind, ok := s.industries[name]; ok {
		return ind.ID, nil
	}
	s.nextID++
	s.industries[name] = &model.Industry{ID: s.nextID, Name: name, Slug: slug}
	return s.nextID, nil
}

// FindOrganization returns a copy of the stored record.
func (s *Store) FindOrganization(ctx context.Context, id string) (*model.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.organizations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	org := stored.org
	return &org, nil
}

func (s *Store) UpsertOrganization(ctx context.Context, org *model.Organization) (model.UpsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if stored, ok := s.organizations[org.ID]; ok {
		stored.org = *org
		stored.updatedAt = now
		return model.OutcomeUpdated, nil
	}
	s.organizations[org.ID] = &storedOrganization{org: *org, createdAt: now, updatedAt: now}
	return model.OutcomeCreated, nil
}

func (s *Store) CountCountries(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.countries)), nil
}

func (s *Store) CountIndustries(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.industries)), nil
}

func (s *Store) CountOrganizations(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.organizations)), nil
}

// Industry returns the stored industry named name.
func (s *Store) Industry(name string) (model.Industry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ind, ok := s.industries[name]
	if !ok {
		return model.Industry{}, false
	}
	return *ind, true
}
