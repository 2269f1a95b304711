package sql

import (
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

func fromDomainOrganization(o *model.Organization) *OrganizationEntity {
	return &OrganizationEntity{
		ID:                o.ID,
		Name:              o.Name,
		Website:           o.Website,
		CountryID:         int64(o.CountryID),
		IndustryID:        int64(o.IndustryID),
		Description:       o.Description,
		Founded:           o.Founded,
		NumberOfEmployees: o.Employees,
	}
}

func toDomainOrganization(e *OrganizationEntity) *model.Organization {
	return &model.Organization{
		ID: e.ID,
		OrganizationFields: model.OrganizationFields{
			Name:        e.Name,
			Website:     e.Website,
			CountryID:   model.EntityID(e.CountryID),
			IndustryID:  model.EntityID(e.IndustryID),
			Description: e.Description,
			Founded:     e.Founded,
			Employees:   e.NumberOfEmployees,
		},
	}
}
