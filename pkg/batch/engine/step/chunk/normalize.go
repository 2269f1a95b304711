package chunk

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
)

var yearPattern = regexp.MustCompile(`^\d{4}$`)

// normalizedRow holds the typed values of a SourceRow. Reference IDs are resolved later.
type normalizedRow struct {
	Key      string
	Country  string
	Industry string
	Fields   model.OrganizationFields
}

// normalizeRow converts raw values into typed fields. A row without identifier, country
// or industry is rejected here, before anything is written.
func normalizeRow(row model.SourceRow) (normalizedRow, error) {
	var errs []exception.FieldError
	required := func(c model.Column) string {
		v, _ := row.Value(c)
		if v == "" {
			errs = append(errs, exception.FieldError{Field: string(c), Reason: "is required"})
		}
		return v
	}

	n := normalizedRow{
		Key:      required(model.ColumnIdentifier),
		Country:  required(model.ColumnCountry),
		Industry: required(model.ColumnIndustry),
	}
	n.Fields.Name, _ = row.Value(model.ColumnName)
	n.Fields.Website, _ = row.Value(model.ColumnWebsite)
	n.Fields.Description, _ = row.Value(model.ColumnDescription)

	if raw, _ := row.Value(model.ColumnFounded); raw != "" {
		founded, err := parseFounded(raw)
		if err != nil {
			errs = append(errs, exception.FieldError{Field: string(model.ColumnFounded), Reason: err.Error()})
		} else {
			n.Fields.Founded = &founded
		}
	}
	if raw, _ := row.Value(model.ColumnEmployees); raw != "" {
		employees, err := strconv.Atoi(strings.ReplaceAll(raw, "_", ""))
		if err != nil {
			errs = append(errs, exception.FieldError{Field: string(model.ColumnEmployees), Reason: fmt.Sprintf("'%s' is not an integer", raw)})
		} else {
			n.Fields.Employees = &employees
		}
	}

	if len(errs) > 0 {
		return n, &exception.ValidationError{Key: n.Key, Fields: errs}
	}
	return n, nil
}

// parseFounded accepts a four digit year, defaulted to January 1st, or a YYYY-MM-DD date.
func parseFounded(raw string) (time.Time, error) {
	if yearPattern.MatchString(raw) {
		year, _ := strconv.Atoi(raw)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("'%s' is neither a year nor a YYYY-MM-DD date", raw)
	}
	return t, nil
}
