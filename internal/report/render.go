package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"github.com/optimization-lab/regional-report/internal/core/sales"
	"github.com/optimization-lab/regional-report/internal/instrument"
	"github.com/optimization-lab/regional-report/internal/strategy"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding for a report.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name. Empty selects the table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, s)
}

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	headingColor = color.New(color.Bold)
)

var legLabels = map[string]string{
	strategy.LegJoin:   "Execution Time",
	strategy.LegConfig: "Config Fetch Time",
	strategy.LegOrders: "Order Aggregate Time",
}

// Report runs the request and renders the result to w, completing the
// lifecycle: Running, Rendering, then Done or Failed.
func (r *Reporter) Report(ctx context.Context, req Request, w io.Writer, format Format) (*Report, error) {
	format, err := ParseFormat(string(format))
	if err != nil {
		return nil, err
	}
	rep, err := r.Run(ctx, req)
	if err != nil {
		return rep, err
	}
	if err := Render(w, rep, format); err != nil {
		return rep, err
	}
	return rep, nil
}

// Render writes rep to w in the given format.
func Render(w io.Writer, rep *Report, format Format) error {
	rep.transition(StateRendering)

	var err error
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(newView(rep, StateDone))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		err = enc.Encode(newView(rep, StateDone))
		if err == nil {
			err = enc.Close()
		}
	case FormatTable, "":
		err = renderTable(w, rep)
	default:
		err = fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, format)
	}
	if err != nil {
		rep.fail(fmt.Errorf("render report: %w", err))
		return err
	}
	rep.transition(StateDone)
	return nil
}

func renderTable(w io.Writer, rep *Report) error {
	tw := &errWriter{w: w}
	tw.printf("Fetching cross-database report for: %s\n", strings.ToUpper(rep.Request.Country))
	if rep.Request.UseCache && rep.Request.Mode != ModeJoin {
		tw.printf("Reference cache: enabled\n")
	}

	for _, section := range rep.Sections {
		tw.printf("\n")
		tw.colorf(headingColor, "== %s ==\n", section.Strategy)

		if section.NoData {
			tw.colorf(errorColor, "No data found for country: %s\n", rep.Request.Country)
		} else {
			writeRows(tw, section.Rows)
		}
		for _, warning := range section.Warnings {
			tw.colorf(warnColor, "Warning: %s\n", warning.Message)
		}

		for _, leg := range section.Legs {
			writeLeg(tw, leg)
		}
		if len(section.Legs) > 1 {
			tw.colorf(successColor, "Total Execution Time: %.3f seconds\n", section.Total().Seconds())
		}
	}

	if c := rep.Comparison; c != nil {
		tw.printf("\n")
		if c.Degenerate {
			tw.colorf(warnColor, "Speed-up: %s (scatter-merge time measured as zero)\n", c.Speedup)
		} else {
			tw.colorf(successColor, "Speed-up: %sx (join %.3fs vs scatter-merge %.3fs)\n",
				c.Speedup, c.JoinTotal.Seconds(), c.ScatterTotal.Seconds())
		}
	}
	return tw.err
}

func writeLeg(tw *errWriter, leg *instrument.Profile) {
	if leg == nil {
		return
	}
	label, ok := legLabels[leg.Leg]
	if !ok {
		label = leg.Leg + " Time"
	}
	if leg.Source != "" {
		tw.colorf(successColor, "%s: %s seconds (%s)\n", label, leg.Seconds(), leg.Source)
	} else {
		tw.colorf(successColor, "%s: %s seconds\n", label, leg.Seconds())
	}
	for _, p := range leg.Plan {
		tw.printf("  plan: rows=%s type=%s filtered=%s ref=%s extra=%s\n", p.Rows, p.Type, p.Filtered, p.Ref, p.Extra)
	}
}

var tableHeaders = []string{"Country", "Language", "Order Count", "Items Sold"}

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func writeRows(tw *errWriter, rows []sales.Row) {
	t := table.New().
		Border(lipgloss.ASCIIBorder()).
		BorderRow(false).
		Headers(tableHeaders...).
		StyleFunc(func(row, col int) lipgloss.Style { return cellStyle })
	for _, row := range rows {
		t.Row(
			row.Country,
			row.Language,
			strconv.FormatInt(row.OrderCount, 10),
			strconv.FormatInt(row.ItemsSold, 10),
		)
	}
	tw.printf("%s\n", t.String())
}

// errWriter keeps the first write error so rendering code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}

func (e *errWriter) colorf(c *color.Color, format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = c.Fprintf(e.w, format, args...)
}

// view is the serialised shape of a report for json and yaml output.
type view struct {
	RunID      string          `json:"run_id" yaml:"run_id"`
	Mode       Mode            `json:"mode" yaml:"mode"`
	Country    string          `json:"country" yaml:"country"`
	UseCache   bool            `json:"use_cache" yaml:"use_cache"`
	StartedAt  string          `json:"started_at" yaml:"started_at"`
	State      State           `json:"state" yaml:"state"`
	Sections   []sectionView   `json:"sections" yaml:"sections"`
	Comparison *comparisonView `json:"comparison,omitempty" yaml:"comparison,omitempty"`
	Error      string          `json:"error,omitempty" yaml:"error,omitempty"`
}

type sectionView struct {
	Strategy     string          `json:"strategy" yaml:"strategy"`
	NoData       bool            `json:"no_data" yaml:"no_data"`
	Message      string          `json:"message,omitempty" yaml:"message,omitempty"`
	Rows         []sales.Row     `json:"rows" yaml:"rows"`
	Legs         []legView       `json:"legs" yaml:"legs"`
	TotalSeconds string          `json:"total_seconds" yaml:"total_seconds"`
	Warnings     []sales.Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type legView struct {
	Leg     string               `json:"leg" yaml:"leg"`
	Source  string               `json:"source,omitempty" yaml:"source,omitempty"`
	Seconds string               `json:"seconds" yaml:"seconds"`
	Query   string               `json:"query,omitempty" yaml:"query,omitempty"`
	Plan    []instrument.PlanRow `json:"plan,omitempty" yaml:"plan,omitempty"`
}

type comparisonView struct {
	JoinSeconds         string `json:"join_seconds" yaml:"join_seconds"`
	ScatterMergeSeconds string `json:"scatter_merge_seconds" yaml:"scatter_merge_seconds"`
	Speedup             string `json:"speedup" yaml:"speedup"`
}

// newView snapshots rep as it will stand once rendering finishes.
func newView(rep *Report, state State) view {
	v := view{
		RunID:     rep.RunID,
		Mode:      rep.Request.Mode,
		Country:   rep.Request.Country,
		UseCache:  rep.Request.UseCache,
		StartedAt: rep.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		State:     state,
		Sections:  make([]sectionView, 0, len(rep.Sections)),
		Error:     rep.Error,
	}
	for _, s := range rep.Sections {
		sv := sectionView{
			Strategy:     s.Strategy,
			NoData:       s.NoData,
			Rows:         s.Rows,
			TotalSeconds: fmt.Sprintf("%.3f", s.Total().Seconds()),
			Warnings:     s.Warnings,
		}
		if sv.Rows == nil {
			sv.Rows = []sales.Row{}
		}
		if s.NoData {
			sv.Message = "No data found for country: " + rep.Request.Country
		}
		for _, leg := range s.Legs {
			if leg == nil {
				continue
			}
			sv.Legs = append(sv.Legs, legView{
				Leg:     leg.Leg,
				Source:  leg.Source,
				Seconds: leg.Seconds(),
				Query:   leg.Query,
				Plan:    leg.Plan,
			})
		}
		v.Sections = append(v.Sections, sv)
	}
	if c := rep.Comparison; c != nil {
		v.Comparison = &comparisonView{
			JoinSeconds:         fmt.Sprintf("%.3f", c.JoinTotal.Seconds()),
			ScatterMergeSeconds: fmt.Sprintf("%.3f", c.ScatterTotal.Seconds()),
			Speedup:             c.Speedup,
		}
	}
	return v
}
