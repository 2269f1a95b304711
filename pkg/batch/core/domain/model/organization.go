package model

import (
	"math"
	"time"
)

// EntityID identifies a stored reference entity.
type EntityID int64

// Dimension names a reference entity kind.
type Dimension string

const (
	DimensionCountry  Dimension = "country"
	DimensionIndustry Dimension = "industry"
)

// Limits enforced on stored values.
const (
	MaxOrganizationIDLength = 15
	MaxNameLength           = 100
	MaxWebsiteLength        = 200
	MaxEmployees            = math.MaxInt32
)

// Country is a deduplicated country reference.
type Country struct {
	ID   EntityID
	Name string
}

// Industry is a deduplicated industry reference.
type Industry struct {
	ID   EntityID
	Name string
	Slug string
}

// OrganizationFields are the mutable attributes of an organization.
type OrganizationFields struct {
	Name        string
	Website     string
	CountryID   EntityID
	IndustryID  EntityID
	Description string
	Founded     *time.Time
	Employees   *int
}

// Organization is an upserted record keyed by its immutable ID.
type Organization struct {
	ID string
	OrganizationFields
}

// UpsertOutcome tells whether an upsert inserted or replaced a record.
type UpsertOutcome string

const (
	OutcomeCreated UpsertOutcome = "created"
	OutcomeUpdated UpsertOutcome = "updated"
)
