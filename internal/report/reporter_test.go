package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/strategy"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var caRows = []sales.Row{
	{Country: "ca", Language: "English", OrderCount: 2, ItemsSold: 6},
	{Country: "ca", Language: "French", OrderCount: 3, ItemsSold: 6},
}

type fakeJoin struct {
	calls   *[]string
	rows    []sales.Row
	elapsed time.Duration
	err     error
}

func (f *fakeJoin) Run(_ context.Context, country string) (*instrument.Profile, error) {
	*f.calls = append(*f.calls, "join:"+country)
	if f.err != nil {
		return nil, f.err
	}
	return &instrument.Profile{
		Leg:      strategy.LegJoin,
		Source:   "cross-store join",
		Duration: f.elapsed,
		Query:    "SELECT ...",
		Plan: []instrument.PlanRow{{
			Rows: "2", Type: "Aggregate", Filtered: instrument.NotAvailable,
			Ref: instrument.NotAvailable, Extra: instrument.DefaultExtra,
		}},
		Rows: f.rows,
	}, nil
}

type fakeScatter struct {
	calls    *[]string
	rows     []sales.Row
	config   time.Duration
	orders   time.Duration
	warnings []sales.Warning
	err      error
}

func (f *fakeScatter) Run(_ context.Context, country string, useCache bool) (*strategy.ScatterResult, error) {
	call := "scatter:" + country
	if useCache {
		call += ":cached"
	}
	*f.calls = append(*f.calls, call)
	if f.err != nil {
		return nil, f.err
	}
	return &strategy.ScatterResult{
		Config:   &instrument.Profile{Leg: strategy.LegConfig, Source: "cache", Duration: f.config},
		Orders:   &instrument.Profile{Leg: strategy.LegOrders, Source: "database", Duration: f.orders, Rows: f.rows},
		Warnings: f.warnings,
	}, nil
}

func newTestReporter(calls *[]string, join *fakeJoin, scatter *fakeScatter, warmUps ...WarmUp) *Reporter {
	join.calls = calls
	scatter.calls = calls
	r := NewReporter(join, scatter, warmUps...)
	r.nowFn = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	r.newID = func() string { return "run-1" }
	return r
}

func probe(calls *[]string, name string, err error) WarmUp {
	return WarmUp{Name: name, Probe: func(context.Context) error {
		*calls = append(*calls, "probe:"+name)
		return err
	}}
}

func TestSpeedup(t *testing.T) {
	cases := []struct {
		name    string
		join    time.Duration
		scatter time.Duration
		want    string
		ok      bool
	}{
		{"rounds to one decimal", 45 * time.Millisecond, 14 * time.Millisecond, "3.2", true},
		{"rounds half away from zero", 5 * time.Millisecond, 4 * time.Millisecond, "1.3", true},
		{"equal times", 10 * time.Millisecond, 10 * time.Millisecond, "1.0", true},
		{"slower scatter", time.Millisecond, 3 * time.Millisecond, "0.3", true},
		{"zero scatter", 12 * time.Millisecond, 0, instrument.NotAvailable, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Speedup(tc.join, tc.scatter)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.ok, ok)
		})
	}
}

func TestReporter_JoinMode(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows, elapsed: 45 * time.Millisecond},
		&fakeScatter{},
		probe(&calls, "orders", nil),
	)

	rep, err := r.Run(context.Background(), Request{Mode: ModeJoin, Country: " CA "})
	require.NoError(t, err)
	require.Equal(t, []string{"probe:orders", "join:ca"}, calls)
	require.Equal(t, StateRunning, rep.State)
	require.Equal(t, "run-1", rep.RunID)
	require.Len(t, rep.Sections, 1)
	require.Equal(t, StrategyJoin, rep.Sections[0].Strategy)
	require.Equal(t, caRows, rep.Sections[0].Rows)
	require.Nil(t, rep.Comparison)
}

func TestReporter_CompareRunsSequentiallyAfterWarmUp(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows, elapsed: 45 * time.Millisecond},
		&fakeScatter{rows: caRows, config: 2 * time.Millisecond, orders: 12 * time.Millisecond},
		probe(&calls, "orders", nil),
		probe(&calls, "cache", nil),
		probe(&calls, "reference", nil),
	)

	rep, err := r.Run(context.Background(), Request{Mode: ModeCompare, Country: "ca", UseCache: true})
	require.NoError(t, err)
	require.Equal(t, []string{
		"probe:orders", "probe:cache", "probe:reference",
		"join:ca", "scatter:ca:cached",
	}, calls)

	require.Len(t, rep.Sections, 2)
	require.Equal(t, rep.Sections[0].Rows, rep.Sections[1].Rows)
	require.NotNil(t, rep.Comparison)
	require.Equal(t, 45*time.Millisecond, rep.Comparison.JoinTotal)
	require.Equal(t, 14*time.Millisecond, rep.Comparison.ScatterTotal)
	require.Equal(t, "3.2", rep.Comparison.Speedup)
	require.False(t, rep.Comparison.Degenerate)
}

func TestReporter_DegenerateSpeedup(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows, elapsed: 5 * time.Millisecond},
		&fakeScatter{rows: caRows},
	)

	rep, err := r.Run(context.Background(), Request{Mode: ModeCompare, Country: "ca"})
	require.NoError(t, err)
	require.True(t, rep.Comparison.Degenerate)
	require.Equal(t, instrument.NotAvailable, rep.Comparison.Speedup)
}

func TestReporter_WarmUpFailureIsFatal(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows},
		&fakeScatter{rows: caRows},
		probe(&calls, "orders", errors.New("connection refused")),
	)

	rep, err := r.Run(context.Background(), Request{Mode: ModeCompare, Country: "ca"})
	require.ErrorIs(t, err, sales.ErrStoreUnavailable)
	require.ErrorContains(t, err, "connection refused")
	require.Equal(t, StateFailed, rep.State)
	require.Equal(t, []string{"probe:orders"}, calls)
}

func TestReporter_OptionalWarmUpFailureContinues(t *testing.T) {
	var calls []string
	cacheProbe := probe(&calls, "cache", errors.New("redis down"))
	cacheProbe.Optional = true
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows},
		&fakeScatter{rows: caRows},
		cacheProbe,
		probe(&calls, "reference", nil),
	)

	_, err := r.Run(context.Background(), Request{Mode: ModeScatterMerge, Country: "ca", UseCache: true})
	require.NoError(t, err)
	require.Equal(t, []string{"probe:cache", "probe:reference", "scatter:ca:cached"}, calls)
}

func TestReporter_StrategyFailure(t *testing.T) {
	var calls []string
	storeErr := sales.StoreError("aggregate orders", errors.New("timeout"))
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows},
		&fakeScatter{err: storeErr},
	)

	rep, err := r.Run(context.Background(), Request{Mode: ModeCompare, Country: "ca"})
	require.ErrorIs(t, err, sales.ErrStoreUnavailable)
	require.Equal(t, StateFailed, rep.State)
	require.Contains(t, rep.Error, "timeout")
	require.Nil(t, rep.Comparison)
}

func TestReporter_InvalidRequest(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls, &fakeJoin{}, &fakeScatter{})

	_, err := r.Run(context.Background(), Request{Mode: ModeJoin, Country: "  "})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = r.Run(context.Background(), Request{Mode: "fastest", Country: "ca"})
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, calls)
}

func TestReporter_NoDataIsNotAnError(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls, &fakeJoin{}, &fakeScatter{})

	rep, err := r.Run(context.Background(), Request{Mode: ModeCompare, Country: "zz"})
	require.NoError(t, err)
	for _, s := range rep.Sections {
		require.True(t, s.NoData)
		require.Empty(t, s.Rows)
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":          ModeJoin,
		"join":      ModeJoin,
		"SCATTER":   ModeScatterMerge,
		"optimized": ModeScatterMerge,
		"compare":   ModeCompare,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got, in)
	}
	_, err := ParseMode("parallel")
	require.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRender_Table(t *testing.T) {
	color.NoColor = true
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows, elapsed: 45 * time.Millisecond},
		&fakeScatter{
			rows:     caRows,
			config:   2 * time.Millisecond,
			orders:   12 * time.Millisecond,
			warnings: []sales.Warning{sales.MissingConfigWarning("xx_XX")},
		},
	)

	var buf bytes.Buffer
	rep, err := r.Report(context.Background(), Request{Mode: ModeCompare, Country: "ca"}, &buf, FormatTable)
	require.NoError(t, err)
	require.Equal(t, StateDone, rep.State)

	out := buf.String()
	require.Contains(t, out, "Fetching cross-database report for: CA\n")
	require.Contains(t, out, strings.Join([]string{
		"+---------+----------+-------------+------------+",
		"| Country | Language | Order Count | Items Sold |",
		"+---------+----------+-------------+------------+",
		"| ca      | English  | 2           | 6          |",
		"| ca      | French   | 3           | 6          |",
		"+---------+----------+-------------+------------+",
	}, "\n"))
	require.Contains(t, out, "Execution Time: 0.045 seconds (cross-store join)\n")
	require.Contains(t, out, "  plan: rows=2 type=Aggregate filtered=N/A ref=N/A extra=Using Index\n")
	require.Contains(t, out, "Config Fetch Time: 0.002 seconds (cache)\n")
	require.Contains(t, out, "Order Aggregate Time: 0.012 seconds (database)\n")
	require.Contains(t, out, "Total Execution Time: 0.014 seconds\n")
	require.Contains(t, out, "Warning: ")
	require.Contains(t, out, "xx_XX")
	require.Contains(t, out, "Speed-up: 3.2x (join 0.045s vs scatter-merge 0.014s)\n")
}

func TestRender_TableNoData(t *testing.T) {
	color.NoColor = true
	var calls []string
	r := newTestReporter(&calls, &fakeJoin{elapsed: time.Millisecond}, &fakeScatter{})

	var buf bytes.Buffer
	_, err := r.Report(context.Background(), Request{Mode: ModeJoin, Country: "zz"}, &buf, FormatTable)
	require.NoError(t, err)
	require.Contains(t, buf.String(), "No data found for country: zz\n")
	require.NotContains(t, buf.String(), "| Country |")
}

func TestRender_JSON(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls,
		&fakeJoin{rows: caRows, elapsed: 45 * time.Millisecond},
		&fakeScatter{rows: caRows, config: 2 * time.Millisecond, orders: 12 * time.Millisecond},
	)

	var buf bytes.Buffer
	rep, err := r.Report(context.Background(), Request{Mode: ModeCompare, Country: "ca"}, &buf, FormatJSON)
	require.NoError(t, err)
	require.Equal(t, StateDone, rep.State)

	var got struct {
		RunID    string `json:"run_id"`
		State    string `json:"state"`
		Country  string `json:"country"`
		Sections []struct {
			Strategy     string      `json:"strategy"`
			Rows         []sales.Row `json:"rows"`
			TotalSeconds string      `json:"total_seconds"`
			Legs         []struct {
				Leg     string `json:"leg"`
				Seconds string `json:"seconds"`
			} `json:"legs"`
		} `json:"sections"`
		Comparison struct {
			Speedup string `json:"speedup"`
		} `json:"comparison"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, "done", got.State)
	require.Equal(t, "ca", got.Country)
	require.Len(t, got.Sections, 2)
	require.Equal(t, StrategyScatterMerge, got.Sections[1].Strategy)
	require.Equal(t, caRows, got.Sections[1].Rows)
	require.Equal(t, "0.014", got.Sections[1].TotalSeconds)
	require.Len(t, got.Sections[1].Legs, 2)
	require.Equal(t, "0.002", got.Sections[1].Legs[0].Seconds)
	require.Equal(t, "3.2", got.Comparison.Speedup)
}

func TestRender_YAML(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls, &fakeJoin{elapsed: time.Millisecond}, &fakeScatter{})

	var buf bytes.Buffer
	_, err := r.Report(context.Background(), Request{Mode: ModeJoin, Country: "zz"}, &buf, FormatYAML)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "zz", got["country"])
	sections := got["sections"].([]interface{})
	require.Len(t, sections, 1)
	section := sections[0].(map[string]interface{})
	require.Equal(t, true, section["no_data"])
	require.Equal(t, "No data found for country: zz", section["message"])
}

func TestReport_UnknownFormat(t *testing.T) {
	var calls []string
	r := newTestReporter(&calls, &fakeJoin{}, &fakeScatter{})

	_, err := r.Report(context.Background(), Request{Mode: ModeJoin, Country: "ca"}, &bytes.Buffer{}, "xml")
	require.ErrorIs(t, err, ErrInvalidRequest)
	require.Empty(t, calls)
}
