// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

//go:embed testdata/seed.json
var seedData []byte

var seedOptions struct {
	db string
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Recreates the store with the bundled sample activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := seedDatabase(cmd.Context(), dbPath(seedOptions.db))
			if err != nil {
				return err
			}

			logger.Info("database seeded", zap.Int("activities", n))

			return nil
		},
	}
}

func init() {
	seedCmd := newSeedCmd()
	seedCmd.Flags().StringVar(&seedOptions.db, "db", "", "DuckDB store to recreate (default SITU_DB_PATH)")
	rootCmd.AddCommand(seedCmd)
}

func seedDatabase(ctx context.Context, dbPath string) (int, error) {
	// remove old db if it exists
	_ = os.Remove(dbPath)
	_ = os.Remove(dbPath + ".wal")

	activities, err := decodeActivities(seedData)
	if err != nil {
		return 0, fmt.Errorf("decoding seed data: %w", err)
	}

	repo, closeFn, err := openRepository(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer closeFn()

	if err := repo.BulkInsert(ctx, activities); err != nil {
		return 0, fmt.Errorf("saving seed activities: %w", err)
	}

	return len(activities), nil
}
