package model

import "strings"

// Column is the canonical name of a source column.
type Column string

const (
	ColumnIdentifier  Column = "identifier"
	ColumnName        Column = "name"
	ColumnWebsite     Column = "website"
	ColumnCountry     Column = "country"
	ColumnDescription Column = "description"
	ColumnFounded     Column = "founded"
	ColumnIndustry    Column = "industry"
	ColumnEmployees   Column = "employees"
)

// RequiredColumns must be present in the header of every source file.
var RequiredColumns = []Column{ColumnIdentifier, ColumnName, ColumnCountry, ColumnIndustry}

// SourceRow is one data row of the source file keyed by canonical column.
type SourceRow struct {
	// Chunk is the index of the chunk the row was read from.
	Chunk int
	// Line is the 1-based line number within its chunk file, header excluded.
	Line   int
	Values map[Column]string
}

// Value returns the value of column c and whether the row carries it.
func (r SourceRow) Value(c Column) (string, bool) {
	v, ok := r.Values[c]
	return v, ok
}

// Key returns the row identifier, or "chunk <c> line <n>" when the row has none.
func (r SourceRow) Key() string {
	if v, ok := r.Values[ColumnIdentifier]; ok && v != "" {
		return v
	}
	return lineKey(r.Chunk, r.Line)
}

// headerAliases maps canonicalized header names to columns. The export headers of the
// organizations dataset are accepted next to the canonical names.
var headerAliases = map[string]Column{
	"identifier":        ColumnIdentifier,
	"id":                ColumnIdentifier,
	"organizationid":    ColumnIdentifier,
	"name":              ColumnName,
	"website":           ColumnWebsite,
	"country":           ColumnCountry,
	"description":       ColumnDescription,
	"founded":           ColumnFounded,
	"foundeddate":       ColumnFounded,
	"industry":          ColumnIndustry,
	"employees":         ColumnEmployees,
	"employeecount":     ColumnEmployees,
	"numberofemployees": ColumnEmployees,
}

// HeaderIndex maps each recognized column to its position in a record.
type HeaderIndex map[Column]int

// MapHeader recognizes the columns of header. Matching ignores case, spaces, underscores
// and dashes. Unknown columns are ignored; the first occurrence of a column wins.
// It returns the required columns that are absent.
func MapHeader(header []string) (HeaderIndex, []Column) {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		col, ok := headerAliases[canonicalHeader(h)]
		if !ok {
			continue
		}
		if _, seen := idx[col]; !seen {
			idx[col] = i
		}
	}

	var missing []Column
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	return idx, missing
}

// Row builds the SourceRow of record. Values are trimmed.
func (h HeaderIndex) Row(line int, record []string) SourceRow {
	values := make(map[Column]string, len(h))
	for col, i := range h {
		if i < len(record) {
			values[col] = strings.TrimSpace(record[i])
		}
	}
	return SourceRow{Line: line, Values: values}
}

func canonicalHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		switch r {
		case ' ', '_', '-', '\t':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
