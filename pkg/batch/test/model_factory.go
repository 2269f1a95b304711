package test

import (
	"strings"
)

// SourceHeader is the header of the organizations export used across tests.
var SourceHeader = []string{"Index", "Organization Id", "Name", "Website", "Country", "Description", "Founded", "Industry", "Number of employees"}

// CSV renders header and rows as CSV text. Fields are written verbatim.
func CSV(header []string, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(strings.Join(header, ","))
	b.WriteString("\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	return b.String()
}

// OrgRow builds a data row matching SourceHeader.
func OrgRow(index, id, name, country, industry string) []string {
	return []string{index, id, name, "https://" + strings.ToLower(id) + ".example.com", country, "", "2001", industry, "10"}
}

// ScenarioCSV is a three-row export: A1 and A2 share a country and industry, and A3 has no name.
func ScenarioCSV() string {
	return CSV(SourceHeader,
		OrgRow("1", "A1", "Acme", "US", "Tech"),
		OrgRow("2", "A2", "Beta", "US", "Tech"),
		OrgRow("3", "A3", "", "FR", "Finance"),
	)
}
