// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/config"
)

// isTerminal reports whether f is an interactive device; pipes and files
// are not.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugKeywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Prints the keywords lexical matching extracts from a text",
	Long: `Reads one text per line and prints it followed by the keywords the lexical
similarity uses (lower-cased, accents folded, longer than three characters).

$ echo "Forced door at Loading Dock" | situ debug keywords
Forced door at Loading Dock	forced door loading dock
	`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Enter texts to analyze, one per line…")
		}

		return printKeywords(input, cmd.OutOrStdout())
	},
}

func printKeywords(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		text := scanner.Text()
		keywords := clustering.Keywords(&activity.Activity{Title: text})

		if _, err := fmt.Fprintf(w, "%s\t%s\n", text, strings.Join(keywords, " ")); err != nil {
			return err
		}
	}

	return scanner.Err()
}

var debugSimilarityOptions struct {
	configFile string
}

var debugSimilarityCmd = &cobra.Command{
	Use:   "similarity <file|->",
	Short: "Prints the pairwise similarity of the activities in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activities, err := readActivities(args[0])
		if err != nil {
			return err
		}

		cfg := clustering.DefaultConfig()

		if debugSimilarityOptions.configFile != "" {
			overrides, err := config.LoadClusterFile(debugSimilarityOptions.configFile)
			if err != nil {
				return err
			}

			cfg = cfg.Merge(overrides)
		}

		return writeSimilarities(cmd.OutOrStdout(), activities, cfg)
	},
}

// writeSimilarities prints one row per unordered pair.
func writeSimilarities(w io.Writer, activities []*activity.Activity, cfg clustering.Config) error {
	for i, a := range activities {
		if a == nil {
			return fmt.Errorf("activity %d is null", i)
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "A\tB\tSIMILARITY")

	for i, a := range activities {
		for _, b := range activities[i+1:] {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\n", a.ID, b.ID, clustering.Similarity(a, b, cfg))
		}
	}

	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugKeywordsCmd, debugSimilarityCmd)

	debugSimilarityCmd.Flags().StringVar(&debugSimilarityOptions.configFile, "config", "",
		"YAML file with clustering settings")
}
