// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/ingest"
)

var activitiesOptions struct {
	filterFlags

	db     string
	format string
}

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Manages stored activities",
}

var activitiesLoadCmd = &cobra.Command{
	Use:   "load <file|->",
	Short: "Validates activities from a JSON file and stores them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		activities, err := readActivities(args[0])
		if err != nil {
			return err
		}

		repo, closeFn, err := openRepository(ctx, dbPath(activitiesOptions.db))
		if err != nil {
			return err
		}
		defer closeFn()

		if err := repo.BulkInsert(ctx, activities); err != nil {
			return err
		}

		logger.Info("activities loaded", zap.Int("count", len(activities)), zap.String("source", args[0]))

		return nil
	},
}

var activitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists stored activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		filter, err := activitiesOptions.filter(settings.BatchLimit)
		if err != nil {
			return err
		}

		repo, closeFn, err := openRepository(ctx, dbPath(activitiesOptions.db))
		if err != nil {
			return err
		}
		defer closeFn()

		activities, err := repo.List(ctx, filter)
		if err != nil {
			return err
		}

		switch activitiesOptions.format {
		case "json":
			if activities == nil {
				activities = []*activity.Activity{}
			}

			return writeJSON(cmd.OutOrStdout(), activities)
		case "table":
			return writeActivities(cmd.OutOrStdout(), activities)
		default:
			return fmt.Errorf("unknown format %q, expected json or table", activitiesOptions.format)
		}
	},
}

var activitiesPublishCmd = &cobra.Command{
	Use:   "publish <file|->",
	Short: "Publishes activities from a JSON file to the ingestion topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activities, err := readActivities(args[0])
		if err != nil {
			return err
		}

		w := ingest.NewWriter(settings.KafkaBrokers, settings.KafkaTopic)
		defer w.Close()

		if err := ingest.Publish(cmd.Context(), w, activities); err != nil {
			return err
		}

		logger.Info("activities published",
			zap.Int("count", len(activities)),
			zap.String("topic", settings.KafkaTopic),
		)

		return nil
	},
}

func writeActivities(w io.Writer, activities []*activity.Activity) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tTIME\tPRIORITY\tCATEGORY\tLOCATION\tTITLE")

	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.Timestamp.UTC().Format("2006-01-02 15:04"),
			a.Priority,
			a.Category,
			a.Location,
			a.Title,
		)
	}

	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(activitiesCmd)
	activitiesCmd.AddCommand(activitiesLoadCmd, activitiesListCmd, activitiesPublishCmd)

	activitiesCmd.PersistentFlags().StringVar(&activitiesOptions.db, "db", "", "DuckDB store (default SITU_DB_PATH)")
	activitiesOptions.register(activitiesListCmd)
	activitiesListCmd.Flags().StringVar(&activitiesOptions.format, "format", "table", "output format: json or table")
}
