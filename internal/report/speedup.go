package report

import (
	"time"

	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/shopspring/decimal"
)

// Speedup returns join/scatter rounded to one decimal place. A zero (or
// negative) scatter duration cannot be divided by and yields "N/A", false.
func Speedup(join, scatter time.Duration) (string, bool) {
	if scatter <= 0 {
		return instrument.NotAvailable, false
	}
	ratio := decimal.NewFromInt(int64(join)).
		Div(decimal.NewFromInt(int64(scatter))).
		Round(1)
	return ratio.StringFixed(1), true
}

// Compare builds the comparison for a join section and a scatter-merge section.
func Compare(join, scatter Section) *Comparison {
	c := &Comparison{
		JoinTotal:    join.Total(),
		ScatterTotal: scatter.Total(),
	}
	speedup, ok := Speedup(c.JoinTotal, c.ScatterTotal)
	c.Speedup = speedup
	c.Degenerate = !ok
	return c
}
