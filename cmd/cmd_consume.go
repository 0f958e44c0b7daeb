// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/situ8/situ/ingest"
)

var consumeOptions struct {
	db             string
	metricsAddress string
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Stores activities read from the Kafka ingestion topic",
	Long: `
Reads activity events from SITU_KAFKA_TOPIC as part of consumer group
SITU_KAFKA_GROUP, validates them and stores them. Malformed and invalid
events are committed and counted; storage failures are retried.

Ingest counters are exposed at /metrics on SITU_METRICS_ADDRESS
(--metrics-address). An empty address disables the listener.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		repo, closeFn, err := openRepository(ctx, dbPath(consumeOptions.db))
		if err != nil {
			return err
		}
		defer closeFn()

		reader := ingest.NewReader(settings.KafkaBrokers, settings.KafkaTopic, settings.KafkaGroup)
		defer reader.Close()

		addr := settings.MetricsAddress
		if cmd.Flags().Changed("metrics-address") {
			addr = consumeOptions.metricsAddress
		}

		if addr != "" {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}

			logger.Info("metrics listening", zap.String("address", ln.Addr().String()))

			go func() {
				if err := metrics.Serve(ctx, ln); err != nil {
					logger.Error("metrics server", zap.Error(err))
				}
			}()
		}

		logger.Info("consuming",
			zap.Strings("brokers", settings.KafkaBrokers),
			zap.String("topic", settings.KafkaTopic),
			zap.String("group", settings.KafkaGroup),
		)

		processor := ingest.NewProcessor(reader, ingest.NewStoreHandler(repo),
			ingest.WithLogger(logger.Named("ingest")),
			ingest.WithRecorder(metrics),
		)

		if err := processor.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}

		logger.Info("consumer stopped")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)

	consumeCmd.Flags().StringVar(&consumeOptions.db, "db", "", "DuckDB store (default SITU_DB_PATH)")
	consumeCmd.Flags().StringVar(&consumeOptions.metricsAddress, "metrics-address", "",
		"address serving /metrics, empty disables it (default SITU_METRICS_ADDRESS)")
}
