package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/optimization-lab/regional-report/internal/handler"
	"github.com/optimization-lab/regional-report/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve regional sales reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := open(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := server.New(c.cfg.Server.Address(), c.cfg.Server.Mode, a.healthCheckers())
			handler.NewReportHandler(a.newReporter()).RegisterRoutes(srv.Engine)

			// Run blocks until the signal context is cancelled.
			if err := srv.Run(ctx); err != nil {
				return err
			}
			slog.Info("[Server] Shutdown complete")
			return nil
		},
	}
}

