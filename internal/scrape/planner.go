// Package scrape discovers lead candidates: it plans search queries, scrapes
// search results, and extracts contact emails from candidate websites.
package scrape

import "fmt"

var queryTemplates = []string{
	"%[1]s %[2]s",
	"%[1]s companies %[2]s",
	"%[1]s services %[2]s",
	"%[1]s business %[2]s",
	"local %[1]s %[2]s",
	"%[1]s near %[2]s",
}

// PlanQueries returns the six search query variants for a business type and
// location, in the order they are issued.
func PlanQueries(businessType, location string) []string {
	queries := make([]string, len(queryTemplates))
	for i, tmpl := range queryTemplates {
		queries[i] = fmt.Sprintf(tmpl, businessType, location)
	}
	return queries
}
