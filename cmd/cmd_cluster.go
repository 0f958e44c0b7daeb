// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/api"
	"github.com/situ8/situ/client"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/config"
	"github.com/situ8/situ/utils/textutils"
)

type clusterOptions struct {
	filterFlags

	db         string
	remote     string
	trace      bool
	configFile string
	strategy   string
	window     float64
	min        int
	maxCluster int
	smart      bool
	format     string
	byDay      bool
	procs      int
}

var clusterOpts clusterOptions

var clusterCmd = &cobra.Command{
	Use:   "cluster [file|-]",
	Short: "Groups activities into clusters",
	Long: `
Groups activities read from a JSON file (an array, or an object with an
"activities" array), from the local store (--db) or from a running server
(--remote) and prints the resulting clusters.

Configuration is layered: built-in defaults, then --config, then flags.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides, err := clusterOpts.overrides(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()

		if clusterOpts.remote != "" && !clusterOpts.byDay {
			res, err := clusterOpts.clusterRemote(ctx, args, overrides)
			if err != nil {
				return err
			}

			return writeResult(cmd.OutOrStdout(), res, clusterOpts.format)
		}

		activities, err := clusterOpts.load(ctx, args)
		if err != nil {
			return err
		}

		engine := clustering.NewEngine(
			clustering.WithLogger(logger.Named("clustering")),
			clustering.WithRecorder(metrics),
		)

		if clusterOpts.byDay {
			days, err := runByDay(ctx, engine, activities, overrides, clusterOpts.procs)
			if err != nil {
				return err
			}

			return writeDays(cmd.OutOrStdout(), days, clusterOpts.format)
		}

		res, err := engine.Execute(ctx, clustering.Request{Activities: activities, Overrides: overrides})
		if err != nil {
			return err
		}

		return writeResult(cmd.OutOrStdout(), res, clusterOpts.format)
	},
}

// overrides layers the --config file under the flags the user actually set.
func (o *clusterOptions) overrides(cmd *cobra.Command) (*clustering.Overrides, error) {
	var base clustering.Overrides

	if o.configFile != "" {
		fromFile, err := config.LoadClusterFile(o.configFile)
		if err != nil {
			return nil, err
		}

		base = *fromFile
	}

	var flags clustering.Overrides

	if cmd.Flags().Changed("strategy") {
		s, err := clustering.ParseStrategy(o.strategy)
		if err != nil {
			return nil, err
		}

		flags.Strategy = &s
	}

	if cmd.Flags().Changed("window") {
		flags.TimeWindowMinutes = &o.window
	}

	if cmd.Flags().Changed("min") {
		flags.MinActivitiesForCluster = &o.min
	}

	if cmd.Flags().Changed("max-clusters") {
		flags.MaxClusters = &o.maxCluster
	}

	if cmd.Flags().Changed("smart") {
		flags.EnableSmartClustering = &o.smart
	}

	merged := base.Apply(flags)

	return &merged, nil
}

func (o *clusterOptions) newClient() (*client.Client, error) {
	opts := client.Options{BaseURL: o.remote, UserAgent: "situ/" + Version}
	if o.trace {
		opts.Trace = os.Stderr
	}

	return client.New(opts)
}

func (o *clusterOptions) clusterRemote(
	ctx context.Context,
	args []string,
	overrides *clustering.Overrides,
) (*clustering.Result, error) {
	c, err := o.newClient()
	if err != nil {
		return nil, err
	}

	if len(args) == 1 {
		activities, err := readActivities(args[0])
		if err != nil {
			return nil, err
		}

		return c.Cluster(ctx, clustering.Request{Activities: activities, Overrides: overrides})
	}

	filter, err := o.filter(settings.BatchLimit)
	if err != nil {
		return nil, err
	}

	return c.ClusterStored(ctx, client.Query{Filter: filter, Overrides: overrides})
}

// load reads the activities from the file argument, the remote server or the local
// store, in that order of preference.
func (o *clusterOptions) load(ctx context.Context, args []string) ([]*activity.Activity, error) {
	if len(args) == 1 {
		return readActivities(args[0])
	}

	filter, err := o.filter(settings.BatchLimit)
	if err != nil {
		return nil, err
	}

	if o.remote != "" {
		c, err := o.newClient()
		if err != nil {
			return nil, err
		}

		return c.ListActivities(ctx, client.Query{Filter: filter})
	}

	repo, closeFn, err := openRepository(ctx, dbPath(o.db))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return repo.List(ctx, filter)
}

// dayResult is the clustering of the activities of one UTC day.
type dayResult struct {
	Day    string             `json:"day"`
	Result *clustering.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// splitByDay buckets activities by UTC calendar day, keeping input order inside
// each bucket. Days are returned in ascending order.
func splitByDay(activities []*activity.Activity) ([]string, map[string][]*activity.Activity) {
	buckets := make(map[string][]*activity.Activity)

	for _, a := range activities {
		if a == nil {
			continue
		}

		day := a.Timestamp.UTC().Format(time.DateOnly)
		buckets[day] = append(buckets[day], a)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}

	sort.Strings(days)

	return days, buckets
}

// runByDay clusters each day independently on a bounded pool of workers. A failing
// day is reported in its dayResult and does not stop the others.
func runByDay(
	ctx context.Context,
	engine *clustering.Engine,
	activities []*activity.Activity,
	overrides *clustering.Overrides,
	procs int,
) ([]dayResult, error) {
	days, buckets := splitByDay(activities)
	n := len(days)

	if procs <= 0 {
		procs = runtime.NumCPU()
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Clustering"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	results := make([]dayResult, n)

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, procs)

	for i, day := range days {
		wg.Add(1)

		go func(i int, day string) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			results[i] = dayResult{Day: day}

			res, err := engine.Execute(ctx, clustering.Request{Activities: buckets[day], Overrides: overrides})
			if err != nil {
				results[i].Error = err.Error()
				logger.Warn("clustering day failed", zap.String("day", day), zap.Error(err))
			} else {
				results[i].Result = res
			}

			if bar == nil {
				logger.Debug("clustered day", zap.String("day", day), zap.Int("activities", len(buckets[day])))
			} else if err := bar.Add(1); err != nil {
				logger.Warn("updating progress bar", zap.Error(err))
			}
		}(i, day)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func writeResult(w io.Writer, res *clustering.Result, format string) error {
	switch format {
	case "json":
		return writeJSON(w, api.ClusterResponse{Result: res, Entries: res.Entries()})
	case "table":
		return writeTable(w, res)
	default:
		return fmt.Errorf("unknown format %q, expected json or table", format)
	}
}

func writeDays(w io.Writer, days []dayResult, format string) error {
	switch format {
	case "json":
		return writeJSON(w, days)
	case "table":
		for _, d := range days {
			if _, err := fmt.Fprintf(w, "== %s\n", d.Day); err != nil {
				return err
			}

			if d.Result == nil {
				if _, err := fmt.Fprintf(w, "error: %s\n\n", d.Error); err != nil {
					return err
				}

				continue
			}

			if err := writeTable(w, d.Result); err != nil {
				return err
			}

			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}

		return nil
	default:
		return fmt.Errorf("unknown format %q, expected json or table", format)
	}
}

// writeTable prints one row per cluster followed by a summary line.
func writeTable(w io.Writer, res *clustering.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "KIND\tCOUNT\tPRIORITY\tCATEGORY\tLOCATION\tSTART\tCONFIDENCE\tTITLE")

	for _, c := range res.Clusters {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			c.Kind,
			c.Count,
			c.HighestPriority,
			c.DominantCategory,
			c.Location,
			c.TimeRange.Start.UTC().Format("2006-01-02 15:04"),
			c.ConfidenceScore,
			c.Title,
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "%s activities in %s clusters (%s, efficiency %.0f%%, %v)\n",
		textutils.FormatInt(int64(res.TotalActivities)),
		textutils.FormatInt(int64(res.TotalClusters)),
		res.Strategy,
		res.ClusteringEfficiency*100,
		res.ExecutionTime.Round(time.Microsecond),
	)

	return err
}

func (o *clusterOptions) registerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	o.register(cmd)
	f.StringVar(&o.db, "db", "", "DuckDB store to read from (default SITU_DB_PATH)")
	f.StringVar(&o.remote, "remote", "", "base URL of a running situ server")
	f.BoolVar(&o.trace, "trace", false, "dump HTTP exchanges with --remote to stderr")
	f.StringVar(&o.configFile, "config", "", "YAML file with clustering settings")
	f.StringVar(&o.strategy, "strategy", string(clustering.StrategyHybrid),
		"location, category, temporal, lexical or hybrid")
	f.Float64Var(&o.window, "window", 15, "time window in minutes")
	f.IntVar(&o.min, "min", 2, "minimum activities per group")
	f.IntVar(&o.maxCluster, "max-clusters", 50, "advisory maximum number of clusters")
	f.BoolVar(&o.smart, "smart", true, "merge overlapping groups and split incoherent ones")
	f.StringVar(&o.format, "format", "table", "output format: json or table")
	f.BoolVar(&o.byDay, "by-day", false, "cluster each UTC day separately")
	f.IntVar(&o.procs, "procs", 0, "concurrent days with --by-day (default number of CPUs)")
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterOpts.registerFlags(clusterCmd)
}
