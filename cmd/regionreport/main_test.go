package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	corecfg "github.com/optimization-lab/regional-report/internal/core/config"
	"github.com/optimization-lab/regional-report/internal/report"
	"github.com/stretchr/testify/require"
)

func TestRegionalSalesOptions_Request(t *testing.T) {
	tests := []struct {
		name string
		opts regionalSalesOptions
		args []string
		want report.Request
	}{
		{
			name: "default country and join",
			want: report.Request{Mode: report.ModeJoin, Country: "ca"},
		},
		{
			name: "optimized with cache",
			opts: regionalSalesOptions{optimized: true, useCache: true},
			args: []string{"au"},
			want: report.Request{Mode: report.ModeScatterMerge, Country: "au", UseCache: true},
		},
		{
			name: "compare wins over optimized",
			opts: regionalSalesOptions{optimized: true, compare: true},
			args: []string{"all"},
			want: report.Request{Mode: report.ModeCompare, Country: "all"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.opts.request(tt.args))
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"regional-sales", "migrate", "seed", "serve"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}

	salesCmd, _, err := root.Find([]string{"regional-sales"})
	require.NoError(t, err)
	for _, flag := range []string{"optimized", "compare", "cache", "format"} {
		require.NotNil(t, salesCmd.Flags().Lookup(flag), flag)
	}
}

func TestRegionalSales_UnknownFormatFailsBeforeConnecting(t *testing.T) {
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"regional-sales", "ca", "--format", "xml"})

	err := root.Execute()
	require.ErrorIs(t, err, report.ErrInvalidRequest)
	require.Empty(t, stdout.String())
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, corecfg.LogConfig{Level: "warn", Format: "json"})

	logger.Info("[Test] hidden")
	logger.Warn("[Test] shown", "key", "value")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"[Test] shown"`)
	require.Contains(t, buf.String(), `"key":"value"`)
	require.True(t, logger.Enabled(context.Background(), slog.LevelError))
}
