package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	corecfg "github.com/optimization-lab/regional-report/internal/core/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "regionreport.yaml"

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	cfg        *corecfg.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "regionreport",
		Short:         "Benchmark cross-store join against scatter-merge for regional sales",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", defaultConfigPath, "Path to configuration file")

	root.AddCommand(
		newRegionalSalesCmd(c),
		newMigrateCmd(c),
		newSeedCmd(c),
		newServeCmd(c),
	)
	return root
}

func (c *cli) loadConfig(cmd *cobra.Command) error {
	path := c.configPath
	// The default file is optional; an explicit --config must exist.
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := corecfg.Load(path)
	if err != nil {
		return err
	}
	c.cfg = cfg

	slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg.Log))
	slog.Debug("[Config] Loaded config", "path", path, "cache_backend", cfg.Cache.Backend)
	return nil
}

// newLogger writes to stderr so rendered reports on stdout stay clean.
func newLogger(w io.Writer, cfg corecfg.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
