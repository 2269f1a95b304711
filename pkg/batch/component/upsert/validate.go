package upsert

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
)

// Validate checks primaryKey and fields against the organization schema and reports
// every invalid field in one *exception.ValidationError.
func Validate(primaryKey string, fields model.OrganizationFields) error {
	var errs []exception.FieldError
	add := func(field, reason string) {
		errs = append(errs, exception.FieldError{Field: field, Reason: reason})
	}

	switch {
	case primaryKey == "":
		add("identifier", "is required")
	case utf8.RuneCountInString(primaryKey) > model.MaxOrganizationIDLength:
		add("identifier", fmt.Sprintf("exceeds %d characters", model.MaxOrganizationIDLength))
	}

	switch name := strings.TrimSpace(fields.Name); {
	case name == "":
		add("name", "is required")
	case utf8.RuneCountInString(name) > model.MaxNameLength:
		add("name", fmt.Sprintf("exceeds %d characters", model.MaxNameLength))
	}

	if fields.CountryID == 0 {
		add("country", "is required")
	}
	if fields.IndustryID == 0 {
		add("industry", "is required")
	}
	switch {
	case fields.Website == "":
	case utf8.RuneCountInString(fields.Website) > model.MaxWebsiteLength:
		add("website", fmt.Sprintf("exceeds %d characters", model.MaxWebsiteLength))
	case !isWebURL(fields.Website):
		add("website", "is not an absolute http(s) URL")
	}
	if fields.Employees != nil {
		switch e := *fields.Employees; {
		case e < 0:
			add("employees", "must not be negative")
		case e > model.MaxEmployees:
			add("employees", fmt.Sprintf("exceeds %d", model.MaxEmployees))
		}
	}

	if len(errs) > 0 {
		return &exception.ValidationError{Key: primaryKey, Fields: errs}
	}
	return nil
}

func isWebURL(raw string) bool {
	if !govalidator.IsURL(raw) {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
