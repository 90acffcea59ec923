package main

import (
	"fmt"

	"github.com/optimization-lab/regional-report/internal/seed"
	"github.com/spf13/cobra"
)

func newSeedCmd(c *cli) *cobra.Command {
	var (
		orderCount int
		locales    []string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate demo products, orders and order lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openStores(c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			opts := seed.Options{
				Orders:           c.cfg.Seed.Orders,
				Products:         c.cfg.Seed.Products,
				MaxLinesPerOrder: c.cfg.Seed.MaxLinesPerOrder,
				MaxQty:           c.cfg.Seed.MaxQty,
				RandomSeed:       c.cfg.Seed.RandomSeed,
				Locales:          locales,
				ReferenceTable:   c.cfg.Reference.QualifiedTable(),
			}
			if cmd.Flags().Changed("orders") {
				opts.Orders = orderCount
			}

			summary, err := seed.New(a.orders.DB(), a.reference.DB(), opts).Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products, %d orders and %d order lines across %d locales\n",
				summary.Products, summary.Orders, summary.Lines, len(summary.Locales))
			return nil
		},
	}
	cmd.Flags().IntVar(&orderCount, "orders", 0, "Number of orders to generate (overrides seed.orders)")
	cmd.Flags().StringSliceVar(&locales, "locales", nil, "Locales to spread orders over (default: every reference locale)")
	return cmd
}
