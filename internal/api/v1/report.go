package v1

import (
	"fmt"
	"strings"
)

// DefaultCountry is used when a report query names no country.
const DefaultCountry = "ca"

// ReportQuery is the query string of GET /v1/reports/regional-sales.
type ReportQuery struct {
	// Country is the two-letter country code, or "all".
	Country string `form:"country" json:"country"`

	// Mode is one of "join", "scatter" or "compare". Empty means "join".
	Mode string `form:"mode" json:"mode"`

	// Cache enables the reference cache for the scatter-merge strategy.
	Cache bool `form:"cache" json:"cache"`
}

// Validate normalises the query and checks the mode name.
func (q *ReportQuery) Validate() error {
	q.Country = strings.ToLower(strings.TrimSpace(q.Country))
	if q.Country == "" {
		q.Country = DefaultCountry
	}
	if len(q.Country) > 8 {
		return fmt.Errorf("country %q is too long", q.Country)
	}

	q.Mode = strings.ToLower(strings.TrimSpace(q.Mode))
	switch q.Mode {
	case "":
		q.Mode = "join"
	case "join", "scatter", "compare":
	default:
		return fmt.Errorf("mode must be one of join, scatter, compare; got %q", q.Mode)
	}
	return nil
}
