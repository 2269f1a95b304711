package sql

import "time"

// CountryEntity maps the countries table.
type CountryEntity struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
}

func (CountryEntity) TableName() string { return "countries" }

// IndustryEntity maps the industries table.
type IndustryEntity struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:100;not null;uniqueIndex"`
	Slug string `gorm:"size:100;not null;index"`
}

func (IndustryEntity) TableName() string { return "industries" }

// OrganizationEntity maps the organizations table.
type OrganizationEntity struct {
	ID                string     `gorm:"primaryKey;size:15"`
	Name              string     `gorm:"size:100;not null"`
	Website           string     `gorm:"size:200;not null"`
	CountryID         int64      `gorm:"not null"`
	IndustryID        int64      `gorm:"not null"`
	Description       string     `gorm:"not null"`
	Founded           *time.Time `gorm:"type:date"`
	NumberOfEmployees *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (OrganizationEntity) TableName() string { return "organizations" }

const jobExecutionTable = "digest_job_executions"

var jobExecutionColumns = []string{
	"id", "source", "rows_per_task", "status", "chunks",
	"created_count", "updated_count", "error_count", "lost_count",
	"start_time", "end_time", "exit_message",
}
