package instrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/optimization-lab/regional-report/internal/core/sales"
)

// Store names used to pick an explainer.
const (
	StoreOrders    = "orders"
	StoreReference = "reference"
)

// Query is the SQL text and arguments a leg executed.
type Query struct {
	Text string
	Args []interface{}
}

// Explainer returns the store's access plan for a query without changing it.
type Explainer interface {
	Explain(ctx context.Context, query string, args ...interface{}) ([]RawPlanRow, error)
}

// Profile is the measurement of one timed leg of a strategy run.
type Profile struct {
	Leg      string        `json:"leg" yaml:"leg"`
	Source   string        `json:"source,omitempty" yaml:"source,omitempty"`
	Duration time.Duration `json:"-" yaml:"-"`
	Query    string        `json:"query,omitempty" yaml:"query,omitempty"`
	Args     []interface{} `json:"args,omitempty" yaml:"args,omitempty"`
	Plan     []PlanRow     `json:"plan,omitempty" yaml:"plan,omitempty"`
	Rows     []sales.Row   `json:"rows,omitempty" yaml:"rows,omitempty"`
}

// Seconds renders the duration with fixed millisecond precision.
func (p Profile) Seconds() string {
	return fmt.Sprintf("%.3f", p.Duration.Seconds())
}

// WithRows returns a copy of the profile carrying rows.
func (p Profile) WithRows(rows []sales.Row) *Profile {
	p.Rows = rows
	return &p
}

// LegResult is what a measured function reports back: the query it ran (nil when
// it ran none, e.g. a cache hit) and a short description of where data came from.
type LegResult struct {
	Query  *Query
	Source string
}

// Recorder times legs and attaches the store's plan for the executed query.
type Recorder struct {
	explainers map[string]Explainer
	nowFn      func() time.Time
	sinceFn    func(time.Time) time.Duration
}

// NewRecorder creates a recorder. explainers are keyed by store name
// ("orders", "reference"); a missing entry means no plan annotation.
func NewRecorder(explainers map[string]Explainer) *Recorder {
	if explainers == nil {
		explainers = map[string]Explainer{}
	}
	return &Recorder{
		explainers: explainers,
		nowFn:      time.Now,
		sinceFn:    time.Since,
	}
}

// SetClock replaces the clock. Intended for tests.
func (r *Recorder) SetClock(now func() time.Time) {
	r.nowFn = now
	r.sinceFn = func(t time.Time) time.Duration { return now().Sub(t) }
}

// Measure runs fn as one timed leg against store. The plan is requested after the
// clock stops, so explain cost never leaks into the duration.
func (r *Recorder) Measure(
	ctx context.Context,
	leg string,
	store string,
	fn func(ctx context.Context) (LegResult, error),
) (*Profile, error) {
	start := r.nowFn()
	res, err := fn(ctx)
	elapsed := r.sinceFn(start)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Leg:      leg,
		Source:   res.Source,
		Duration: elapsed,
	}
	if res.Query == nil {
		return p, nil
	}
	p.Query = res.Query.Text
	p.Args = res.Query.Args
	p.Plan = r.explain(ctx, leg, store, *res.Query)

	slog.Debug("[Instrument] Leg measured",
		"leg", leg,
		"store", store,
		"seconds", p.Seconds(),
		"plan_rows", len(p.Plan))
	return p, nil
}

func (r *Recorder) explain(ctx context.Context, leg, store string, q Query) []PlanRow {
	explainer, ok := r.explainers[store]
	if !ok || explainer == nil {
		return nil
	}
	raw, err := explainer.Explain(ctx, q.Text, q.Args...)
	if errors.Is(err, ErrExplainUnsupported) {
		slog.Debug("[Instrument] Store has no plan introspection", "leg", leg, "store", store)
		return nil
	}
	if err != nil {
		slog.Warn("[Instrument] Explain failed, leaving leg unannotated",
			"leg", leg,
			"store", store,
			"error", err)
		return nil
	}
	return NormalizeAll(raw)
}
