package instrument

import (
	"errors"
	"fmt"
	"strconv"
)

// Fallback literals used when the store does not report a plan field.
const (
	NotAvailable = "N/A"
	DefaultExtra = "Using Index"
)

// ErrExplainUnsupported is returned by explainers for stores without plan introspection.
var ErrExplainUnsupported = errors.New("explain not supported by store")

// RawPlanRow is one access-plan entry as reported by a store. Every field is optional.
type RawPlanRow struct {
	Rows     *float64
	Type     *string
	Filtered *float64
	Ref      *string
	Extra    *string
}

// PlanRow is a normalized access-plan entry ready for display.
type PlanRow struct {
	Rows     string `json:"rows" yaml:"rows"`
	Type     string `json:"type" yaml:"type"`
	Filtered string `json:"filtered" yaml:"filtered"`
	Ref      string `json:"ref" yaml:"ref"`
	Extra    string `json:"extra" yaml:"extra"`
}

// Normalize substitutes the fallback literals for missing fields.
func Normalize(raw RawPlanRow) PlanRow {
	row := PlanRow{
		Rows:     NotAvailable,
		Type:     NotAvailable,
		Filtered: NotAvailable,
		Ref:      NotAvailable,
		Extra:    DefaultExtra,
	}
	if raw.Rows != nil {
		row.Rows = strconv.FormatFloat(*raw.Rows, 'f', -1, 64)
	}
	if raw.Type != nil && *raw.Type != "" {
		row.Type = *raw.Type
	}
	if raw.Filtered != nil {
		row.Filtered = fmt.Sprintf("%.2f%%", *raw.Filtered)
	}
	if raw.Ref != nil && *raw.Ref != "" {
		row.Ref = *raw.Ref
	}
	if raw.Extra != nil && *raw.Extra != "" {
		row.Extra = *raw.Extra
	}
	return row
}

// NormalizeAll normalizes every row of a plan, preserving order.
func NormalizeAll(raw []RawPlanRow) []PlanRow {
	if len(raw) == 0 {
		return nil
	}
	out := make([]PlanRow, 0, len(raw))
	for _, r := range raw {
		out = append(out, Normalize(r))
	}
	return out
}
