// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/observability"
)

// metrics is shared by every command of one process.
var metrics = observability.NewMetrics()

func dbPath(flag string) string {
	if flag != "" {
		return flag
	}

	return settings.DBPath
}

// openRepository opens (creating if needed) the DuckDB store at path.
func openRepository(ctx context.Context, path string) (activity.Repository, func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repo := activity.NewRepository(db)
	if err := repo.CreateSchema(ctx); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating schema: %w", err)
	}

	return repo, func() { db.Close() }, nil
}

// readActivities reads a JSON array of activities, or an object with an
// "activities" array, from path ("-" is stdin).
func readActivities(path string) ([]*activity.Activity, error) {
	var r io.Reader

	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		r = f
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return decodeActivities(data)
}

func decodeActivities(data []byte) ([]*activity.Activity, error) {
	data = bytes.TrimSpace(data)

	var activities []*activity.Activity

	if len(data) > 0 && data[0] == '{' {
		var wrapper struct {
			Activities []*activity.Activity `json:"activities"`
		}

		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("decoding activities: %w", err)
		}

		return wrapper.Activities, nil
	}

	if err := json.Unmarshal(data, &activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}

	return activities, nil
}

// parseTimeFlag accepts RFC 3339 or a bare date.
func parseTimeFlag(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", s)
	}

	return t, nil
}

// filterFlags are the activity selection flags shared by several commands.
type filterFlags struct {
	since      string
	until      string
	building   string
	zone       string
	categories []string
	limit      int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.since, "since", "", "only activities at or after this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.until, "until", "", "only activities before this time (RFC 3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.building, "building", "", "only activities in this building")
	cmd.Flags().StringVar(&f.zone, "zone", "", "only activities in this zone")
	cmd.Flags().StringSliceVar(&f.categories, "category", nil, "only activities of these categories")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of activities (default SITU_BATCH_LIMIT)")
}

func (f *filterFlags) filter(defaultLimit int) (activity.Filter, error) {
	since, err := parseTimeFlag(f.since)
	if err != nil {
		return activity.Filter{}, fmt.Errorf("--since: %w", err)
	}

	until, err := parseTimeFlag(f.until)
	if err != nil {
		return activity.Filter{}, fmt.Errorf("--until: %w", err)
	}

	filter := activity.Filter{
		Since:    since,
		Until:    until,
		Building: f.building,
		Zone:     f.zone,
		Limit:    f.limit,
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}

	for _, c := range f.categories {
		if c = strings.TrimSpace(c); c != "" {
			filter.Categories = append(filter.Categories, activity.ParseCategory(c))
		}
	}

	return filter, nil
}
