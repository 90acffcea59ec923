package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/strategy"
)

// JoinRunner runs the single-query baseline.
type JoinRunner interface {
	Run(ctx context.Context, country string) (*instrument.Profile, error)
}

// ScatterRunner runs the split fetch-and-merge strategy.
type ScatterRunner interface {
	Run(ctx context.Context, country string, useCache bool) (*strategy.ScatterResult, error)
}

// WarmUp is a probe run once per invocation before the first timed leg.
// A failing probe aborts the run unless Optional is set.
type WarmUp struct {
	Name     string
	Probe    func(ctx context.Context) error
	Optional bool
}

// Reporter orchestrates the selected strategies, warm-up included, and
// assembles the comparison.
type Reporter struct {
	join    JoinRunner
	scatter ScatterRunner
	warmUps []WarmUp
	nowFn   func() time.Time
	newID   func() string
}

// NewReporter creates a reporter. warmUps run in the given order.
func NewReporter(join JoinRunner, scatter ScatterRunner, warmUps ...WarmUp) *Reporter {
	return &Reporter{
		join:    join,
		scatter: scatter,
		warmUps: warmUps,
		nowFn:   time.Now,
		newID:   uuid.NewString,
	}
}

// Run executes the request and returns the assembled report. On failure the
// returned report is in StateFailed and carries the error text.
func (r *Reporter) Run(ctx context.Context, req Request) (*Report, error) {
	rep := &Report{
		RunID:     r.newID(),
		Request:   req,
		StartedAt: r.nowFn(),
		State:     StateIdle,
	}

	normalized, err := req.normalized()
	if err != nil {
		rep.fail(err)
		return rep, err
	}
	rep.Request = normalized
	rep.transition(StateRunning)

	if err := r.warmUp(ctx); err != nil {
		rep.fail(err)
		return rep, err
	}

	if err := r.execute(ctx, rep); err != nil {
		rep.fail(err)
		return rep, err
	}

	slog.Info("[Reporter] Run completed",
		"run_id", rep.RunID,
		"mode", rep.Request.Mode,
		"country", rep.Request.Country,
		"sections", len(rep.Sections),
	)
	return rep, nil
}

func (r *Reporter) execute(ctx context.Context, rep *Report) error {
	req := rep.Request
	switch req.Mode {
	case ModeJoin:
		section, err := r.runJoin(ctx, req.Country)
		if err != nil {
			return err
		}
		rep.Sections = append(rep.Sections, section)
	case ModeScatterMerge:
		section, err := r.runScatter(ctx, req.Country, req.UseCache)
		if err != nil {
			return err
		}
		rep.Sections = append(rep.Sections, section)
	case ModeCompare:
		joinSection, err := r.runJoin(ctx, req.Country)
		if err != nil {
			return err
		}
		scatterSection, err := r.runScatter(ctx, req.Country, req.UseCache)
		if err != nil {
			return err
		}
		rep.Sections = append(rep.Sections, joinSection, scatterSection)
		rep.Comparison = Compare(joinSection, scatterSection)
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}
	return nil
}

func (r *Reporter) runJoin(ctx context.Context, country string) (Section, error) {
	if r.join == nil {
		return Section{}, errors.New("join strategy not configured")
	}
	profile, err := r.join.Run(ctx, country)
	if err != nil {
		return Section{}, fmt.Errorf("join strategy: %w", err)
	}
	return Section{
		Strategy: StrategyJoin,
		Legs:     []*instrument.Profile{profile},
		Rows:     profile.Rows,
		NoData:   len(profile.Rows) == 0,
	}, nil
}

func (r *Reporter) runScatter(ctx context.Context, country string, useCache bool) (Section, error) {
	if r.scatter == nil {
		return Section{}, errors.New("scatter-merge strategy not configured")
	}
	result, err := r.scatter.Run(ctx, country, useCache)
	if err != nil {
		return Section{}, fmt.Errorf("scatter-merge strategy: %w", err)
	}
	rows := result.Rows()
	return Section{
		Strategy: StrategyScatterMerge,
		Legs:     []*instrument.Profile{result.Config, result.Orders},
		Rows:     rows,
		Warnings: result.Warnings,
		NoData:   len(rows) == 0,
	}, nil
}

// warmUp establishes connections and primes the client paths about to be
// timed. Its cost is never attributed to a leg.
func (r *Reporter) warmUp(ctx context.Context) error {
	for _, w := range r.warmUps {
		if w.Probe == nil {
			continue
		}
		start := r.nowFn()
		err := w.Probe(ctx)
		if err == nil {
			slog.Debug("[Reporter] Warm-up probe ok", "probe", w.Name, "elapsed", r.nowFn().Sub(start))
			continue
		}
		if w.Optional {
			slog.Warn("[Reporter] Warm-up probe failed, continuing", "probe", w.Name, "error", err)
			continue
		}
		if !errors.Is(err, sales.ErrStoreUnavailable) {
			err = sales.StoreError("warm-up "+w.Name, err)
		}
		return err
	}
	return nil
}

func (rep *Report) transition(to State) {
	slog.Debug("[Reporter] State transition", "run_id", rep.RunID, "from", rep.State, "to", to)
	rep.State = to
}

func (rep *Report) fail(err error) {
	rep.Error = err.Error()
	rep.transition(StateFailed)
	slog.Error("[Reporter] Run failed", "run_id", rep.RunID, "error", err)
}
