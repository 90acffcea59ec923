package sales

import (
	"sort"
	"strings"
)

// AllCountries disables the country filter.
const AllCountries = "all"

// LocaleConfig maps a storefront locale to its country and language.
// Locale is unique within the reference set.
type LocaleConfig struct {
	Locale   string `json:"locale" yaml:"locale"`
	Country  string `json:"country" yaml:"country"`
	Language string `json:"language" yaml:"language"`
}

// LocaleAggregate is one pre-aggregated fact row as produced by the transactional store.
type LocaleAggregate struct {
	Locale     string
	OrderCount int64
	ItemQty    int64
}

// Row is one line of the regional sales report.
type Row struct {
	Country    string `json:"country" yaml:"country"`
	Language   string `json:"language" yaml:"language"`
	OrderCount int64  `json:"order_count" yaml:"order_count"`
	ItemsSold  int64  `json:"items_sold" yaml:"items_sold"`
}

// IsAll reports whether country selects every country.
func IsAll(country string) bool {
	return strings.EqualFold(strings.TrimSpace(country), AllCountries)
}

// NormalizeCountry lower-cases and trims a country argument.
// Country codes are stored lower-case ("ca", "au").
func NormalizeCountry(country string) string {
	return strings.ToLower(strings.TrimSpace(country))
}

// FilterByCountry returns the configs belonging to country, or all of them for "all".
// The input slice is never modified.
func FilterByCountry(configs []LocaleConfig, country string) []LocaleConfig {
	if IsAll(country) {
		out := make([]LocaleConfig, len(configs))
		copy(out, configs)
		return out
	}
	country = NormalizeCountry(country)
	out := make([]LocaleConfig, 0, len(configs))
	for _, c := range configs {
		if c.Country == country {
			out = append(out, c)
		}
	}
	return out
}

// SortRows orders rows by country then language. Row order carries no meaning;
// sorting only keeps rendered output stable.
func SortRows(rows []Row) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Country != rows[j].Country {
			return rows[i].Country < rows[j].Country
		}
		return rows[i].Language < rows[j].Language
	})
}
