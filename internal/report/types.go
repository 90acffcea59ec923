package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
)

// ErrInvalidRequest marks caller errors (unknown mode or format, empty country).
var ErrInvalidRequest = errors.New("invalid report request")

// Mode selects which strategies a run executes.
type Mode string

const (
	ModeJoin         Mode = "join"
	ModeScatterMerge Mode = "scatter"
	ModeCompare      Mode = "compare"
)

// ParseMode accepts the mode names used by the CLI and HTTP API.
// An empty string selects the join baseline.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "join", "legacy":
		return ModeJoin, nil
	case "scatter", "scatter-merge", "optimized":
		return ModeScatterMerge, nil
	case "compare", "both":
		return ModeCompare, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, s)
}

// State is the lifecycle position of a report run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// Request describes one invocation.
type Request struct {
	Mode     Mode
	Country  string
	UseCache bool
}

func (r Request) normalized() (Request, error) {
	r.Country = sales.NormalizeCountry(r.Country)
	if r.Country == "" {
		return r, fmt.Errorf("%w: country is required", ErrInvalidRequest)
	}
	if r.Mode == "" {
		r.Mode = ModeJoin
	}
	if _, err := ParseMode(string(r.Mode)); err != nil {
		return r, err
	}
	return r, nil
}

// Strategy names as shown in reports.
const (
	StrategyJoin         = "join"
	StrategyScatterMerge = "scatter-merge"
)

// Section is the outcome of one strategy.
type Section struct {
	Strategy string
	Legs     []*instrument.Profile
	Rows     []sales.Row
	Warnings []sales.Warning
	NoData   bool
}

// Total sums the durations of every leg.
func (s Section) Total() time.Duration {
	var total time.Duration
	for _, leg := range s.Legs {
		total += leg.Duration
	}
	return total
}

// Comparison contrasts the two strategies of a compare run.
type Comparison struct {
	JoinTotal    time.Duration
	ScatterTotal time.Duration
	// Speedup is the ratio rounded to one decimal, or instrument.NotAvailable
	// when the scatter-merge total is zero.
	Speedup string
	// Degenerate is set when no ratio could be computed.
	Degenerate bool
}

// Report is everything one invocation produced.
type Report struct {
	RunID      string
	Request    Request
	StartedAt  time.Time
	State      State
	Sections   []Section
	Comparison *Comparison
	Error      string
}

// Warnings returns the warnings of every section in order.
func (r *Report) Warnings() []sales.Warning {
	var out []sales.Warning
	for _, s := range r.Sections {
		out = append(out, s.Warnings...)
	}
	return out
}
