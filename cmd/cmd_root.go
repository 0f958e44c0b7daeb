// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/situ8/situ/config"
)

var (
	settings *config.Config
	logger   = zap.NewNop()
)

// newLogger builds the process logger: a console encoder with the same timestamp
// layout as the old std log writer, or JSON in production.
func newLogger(level string, production bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.DisableStacktrace = true
	}

	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}

	return cfg.Build()
}

var rootCmd = &cobra.Command{
	Use:   "situ",
	Short: "security activity clustering",
	Long: `
situ groups related security activities (alerts, patrol events, incidents in
waiting) into clusters, so operators see "5 related events at Loading Dock"
instead of five separate rows.

Runtime settings come from SITU_* environment variables.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		var err error

		if settings, err = config.Load(); err != nil {
			return err
		}

		if logger, err = newLogger(settings.LogLevel, settings.IsProduction()); err != nil {
			return err
		}

		logger = logger.With(zap.String("tenant", settings.TenantID))

		zap.RedirectStdLog(logger)
		zap.ReplaceGlobals(logger)

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
