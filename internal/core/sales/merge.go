package sales

import "fmt"

// IndexByLocale builds a one-to-one locale index.
// A repeated locale yields ErrDuplicateLocale.
func IndexByLocale(configs []LocaleConfig) (map[string]LocaleConfig, error) {
	index := make(map[string]LocaleConfig, len(configs))
	for _, c := range configs {
		if _, exists := index[c.Locale]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLocale, c.Locale)
		}
		index[c.Locale] = c
	}
	return index, nil
}

// Merge joins per-locale aggregates to their reference entries and groups the
// result by (country, language). Locales absent from the index are skipped and
// reported, one warning per locale.
func Merge(index map[string]LocaleConfig, aggregates []LocaleAggregate) ([]Row, []Warning) {
	type groupKey struct{ country, language string }

	var (
		rows     []Row
		warnings []Warning
		pos      = make(map[groupKey]int)
	)

	for _, agg := range aggregates {
		cfg, ok := index[agg.Locale]
		if !ok {
			warnings = append(warnings, MissingConfigWarning(agg.Locale))
			continue
		}

		key := groupKey{cfg.Country, cfg.Language}
		if i, seen := pos[key]; seen {
			rows[i].OrderCount += agg.OrderCount
			rows[i].ItemsSold += agg.ItemQty
			continue
		}
		pos[key] = len(rows)
		rows = append(rows, Row{
			Country:    cfg.Country,
			Language:   cfg.Language,
			OrderCount: agg.OrderCount,
			ItemsSold:  agg.ItemQty,
		})
	}

	return rows, warnings
}
