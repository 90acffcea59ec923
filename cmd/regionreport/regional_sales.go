package main

import (
	"fmt"
	"log/slog"

	v1 "github.com/optimization-lab/regional-report/internal/api/v1"
	"github.com/optimization-lab/regional-report/internal/report"
	"github.com/spf13/cobra"
)

type regionalSalesOptions struct {
	optimized bool
	compare   bool
	useCache  bool
	format    string
}

func (o regionalSalesOptions) request(args []string) report.Request {
	country := v1.DefaultCountry
	if len(args) > 0 {
		country = args[0]
	}

	mode := report.ModeJoin
	switch {
	case o.compare:
		mode = report.ModeCompare
	case o.optimized:
		mode = report.ModeScatterMerge
	}
	return report.Request{Mode: mode, Country: country, UseCache: o.useCache}
}

func newRegionalSalesCmd(c *cli) *cobra.Command {
	var opts regionalSalesOptions

	cmd := &cobra.Command{
		Use:   "regional-sales [country]",
		Short: "Report orders and items sold per country and language",
		Long: `Report orders and items sold per (country, language) for a country code
or "all". By default the cross-store join runs; --optimized runs scatter-merge
and --compare runs both and prints the speed-up.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			req := opts.request(args)
			if processLocalCache(c.cfg.Cache, req) {
				slog.Warn("[RegionalSales] Memory cache backend does not persist between runs, every run will miss",
					"backend", c.cfg.Cache.Backend)
			}

			a, err := open(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.newReporter().Report(cmd.Context(), req, cmd.OutOrStdout(), format); err != nil {
				return fmt.Errorf("regional sales report failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.optimized, "optimized", false, "Use the scatter-merge strategy")
	cmd.Flags().BoolVar(&opts.compare, "compare", false, "Run both strategies and report the speed-up")
	cmd.Flags().BoolVar(&opts.useCache, "cache", false, "Serve reference config from the cache (scatter-merge only)")
	cmd.Flags().StringVar(&opts.format, "format", string(report.FormatTable), "Output format: table, json or yaml")
	return cmd
}
