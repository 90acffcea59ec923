package main

import (
	"fmt"

	"github.com/optimization-lab/regional-report/internal/migrations"
	"github.com/spf13/cobra"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the orders and reference stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var targets []migrations.Target
			switch target {
			case "all":
				targets = []migrations.Target{migrations.Orders, migrations.Reference}
			case migrations.Orders.Name:
				targets = []migrations.Target{migrations.Orders}
			case migrations.Reference.Name:
				targets = []migrations.Target{migrations.Reference}
			default:
				return fmt.Errorf("unknown migration target %q (must be all, orders or reference)", target)
			}

			cfg := *c.cfg
			cfg.Database.AutoMigrate = false
			a, err := openStores(&cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			return a.migrate(true, targets...)
		},
	}
	cmd.Flags().StringVar(&target, "target", "all", "Which store to migrate: all, orders or reference")
	return cmd
}
