// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/situ8/situ/api"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/config"
)

var serveOptions struct {
	address    string
	db         string
	configFile string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the clustering HTTP API and the Ambient.AI webhook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		defaults := clustering.DefaultConfig()

		if serveOptions.configFile != "" {
			overrides, err := config.LoadClusterFile(serveOptions.configFile)
			if err != nil {
				return err
			}

			defaults = defaults.Merge(overrides)
		}

		repo, closeFn, err := openRepository(ctx, dbPath(serveOptions.db))
		if err != nil {
			return err
		}
		defer closeFn()

		if settings.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}

		engine := clustering.NewEngine(
			clustering.WithDefaults(defaults),
			clustering.WithLogger(logger.Named("clustering")),
			clustering.WithRecorder(metrics),
		)

		server := api.NewServer(engine, repo,
			api.WithLogger(logger.Named("api")),
			api.WithMetrics(metrics),
			api.WithAmbientSecret(settings.AmbientSecret),
			api.WithBatchLimit(settings.BatchLimit),
		)

		address := serveOptions.address
		if address == "" {
			address = settings.HTTPAddress
		}

		return server.Run(ctx, address)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveOptions.address, "address", "", "listen address (default SITU_HTTP_ADDRESS)")
	serveCmd.Flags().StringVar(&serveOptions.db, "db", "", "DuckDB store (default SITU_DB_PATH)")
	serveCmd.Flags().StringVar(&serveOptions.configFile, "config", "", "YAML file with default clustering settings")
}
