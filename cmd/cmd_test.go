// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
)

func sample(id string, at time.Time, loc, title string) *activity.Activity {
	return &activity.Activity{
		ID:        id,
		Category:  activity.CategorySecurityBreach,
		Title:     title,
		Priority:  activity.PriorityHigh,
		Location:  activity.Location{Location: loc, Building: "B"},
		Timestamp: at,
	}
}

func TestDecodeActivities(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
		wantErr  bool
	}{
		{"array", `[{"id":"a","location":"Dock"},{"id":"b","location":"Dock"}]`, []string{"a", "b"}, false},
		{"wrapped", `  {"activities":[{"id":"c","location":{"location":"Dock"}}]}`, []string{"c"}, false},
		{"empty array", `[]`, []string{}, false},
		{"garbage", `{"activities":`, nil, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeActivities([]byte(tc.input))
			if tc.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)

			ids := []string{}
			for _, a := range got {
				ids = append(ids, a.ID)
			}

			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestReadActivitiesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","location":"Dock","category":"Security Breach"}]`), 0o600))

	got, err := readActivities(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, activity.CategorySecurityBreach, got[0].Category)

	_, err = readActivities(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("2025-08-21")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTimeFlag("2025-08-21T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 8, 21, 10, 30, 0, 0, time.UTC), got)

	got, err = parseTimeFlag("")
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseTimeFlag("yesterday")
	assert.Error(t, err)
}

func TestFilterFlags(t *testing.T) {
	cmd := &cobra.Command{}

	var f filterFlags

	f.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{
		"--since=2025-08-21", "--building=A", "--category=Security Breach", "--category=patrol",
	}))

	got, err := f.filter(500)
	require.NoError(t, err)

	expected := activity.Filter{
		Since:      time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC),
		Building:   "A",
		Categories: []activity.Category{activity.CategorySecurityBreach, activity.CategoryPatrol},
		Limit:      500,
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("filter mismatch (-want +got):\n%s", diff)
	}
}

func TestClusterOverridesLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: location\ntime_window_minutes: 30\n"), 0o600))

	cmd := &cobra.Command{}
	o := &clusterOptions{}
	o.registerFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--config", path, "--window=45", "--smart=false"}))

	got, err := o.overrides(cmd)
	require.NoError(t, err)

	cfg := clustering.DefaultConfig().Merge(got)
	assert.Equal(t, clustering.StrategyLocation, cfg.Strategy)
	assert.InDelta(t, 45, cfg.TimeWindowMinutes, 1e-9)
	assert.False(t, cfg.EnableSmartClustering)
	assert.Equal(t, 2, cfg.MinActivitiesForCluster)
	assert.Nil(t, got.MinActivitiesForCluster)
}

func TestClusterOverridesRejectUnknownStrategy(t *testing.T) {
	cmd := &cobra.Command{}
	o := &clusterOptions{}
	o.registerFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--strategy=nearest"}))

	_, err := o.overrides(cmd)
	assert.Error(t, err)
}

func TestSplitByDay(t *testing.T) {
	day1 := time.Date(2025, 8, 21, 23, 50, 0, 0, time.UTC)
	day2 := day1.Add(20 * time.Minute)

	days, buckets := splitByDay([]*activity.Activity{
		sample("late", day2, "Dock", "x"),
		sample("early", day1, "Dock", "x"),
		nil,
		sample("later", day2.Add(time.Minute), "Dock", "x"),
	})

	assert.Equal(t, []string{"2025-08-21", "2025-08-22"}, days)
	assert.Len(t, buckets["2025-08-21"], 1)
	assert.Equal(t, "late", buckets["2025-08-22"][0].ID)
	assert.Equal(t, "later", buckets["2025-08-22"][1].ID)
}

func TestRunByDay(t *testing.T) {
	day1 := time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	activities := []*activity.Activity{
		sample("d1-a", day1, "Loading Dock", "Forced door at loading dock"),
		sample("d1-b", day1.Add(3*time.Minute), "Loading Dock", "Forced door at loading dock again"),
		sample("d2-a", day2, "Server Room", "Invalid badge"),
	}

	results, err := runByDay(context.Background(), clustering.NewEngine(), activities, nil, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "2025-08-21", results[0].Day)
	require.NotNil(t, results[0].Result)
	assert.Equal(t, 2, results[0].Result.TotalActivities)
	assert.Equal(t, 1, results[0].Result.TotalClusters)

	assert.Equal(t, "2025-08-22", results[1].Day)
	require.NotNil(t, results[1].Result)
	assert.Equal(t, 1, results[1].Result.TotalClusters)
	assert.True(t, results[1].Result.Clusters[0].IsSingleton())
}

func TestRunByDayReportsFailingDay(t *testing.T) {
	day1 := time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)

	activities := []*activity.Activity{
		sample("dup", day1, "Dock", "x"),
		sample("dup", day1.Add(time.Minute), "Dock", "x"),
		sample("ok", day1.Add(24*time.Hour), "Dock", "x"),
	}

	results, err := runByDay(context.Background(), clustering.NewEngine(), activities, nil, 1)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Nil(t, results[0].Result)
	assert.Contains(t, results[0].Error, "activity clustering failed")
	assert.NotNil(t, results[1].Result)
}

func TestWriteTable(t *testing.T) {
	at := time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)

	res, err := clustering.NewEngine().Execute(context.Background(), clustering.Request{
		Activities: []*activity.Activity{
			sample("a", at, "Loading Dock", "Forced door at loading dock"),
			sample("b", at.Add(5*time.Minute), "Loading Dock", "Forced door at loading dock"),
			sample("c", at.Add(3*time.Hour), "Server Room", "Invalid badge"),
		},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, "table"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "KIND"))
	assert.Contains(t, lines[1], "group")
	assert.Contains(t, lines[1], "2 related activities")
	assert.Contains(t, lines[2], "singleton")
	assert.Contains(t, lines[3], "3 activities in 2 clusters (hybrid, efficiency 33%")

	assert.Error(t, writeResult(&buf, res, "xml"))
}

func TestWriteResultJSONIncludesEntries(t *testing.T) {
	res, err := clustering.NewEngine().Execute(context.Background(), clustering.Request{
		Activities: []*activity.Activity{sample("a", time.Now(), "Dock", "x")},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, res, "json"))

	assert.Contains(t, buf.String(), `"entries": [`)
	assert.Contains(t, buf.String(), `"kind": "cluster"`)
	assert.Contains(t, buf.String(), `"total_activities": 1`)
}

func TestPrintKeywords(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, printKeywords(strings.NewReader("Forced door at Loading Dock\nCafé alarm café\n"), &buf))

	assert.Equal(t, "Forced door at Loading Dock\tforced door loading dock\nCafé alarm café\tcafe alarm\n", buf.String())
}

func TestWriteSimilarities(t *testing.T) {
	at := time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)

	var buf bytes.Buffer

	require.NoError(t, writeSimilarities(&buf, []*activity.Activity{
		sample("a", at, "Dock", "x"),
		sample("b", at, "Dock", "x"),
		sample("c", at, "Dock", "x"),
	}, clustering.DefaultConfig()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "a  b")
}

func TestWriteSimilaritiesRejectsNullRecords(t *testing.T) {
	activities, err := decodeActivities([]byte(`[{"id":"a","location":"Dock"},null]`))
	require.NoError(t, err)

	var buf bytes.Buffer

	err = writeSimilarities(&buf, activities, clustering.DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "activity 1 is null")
	assert.Empty(t, buf.String())
}

func TestSeedDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "situ.duckdb")

	n, err := seedDatabase(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	// seeding twice recreates the store instead of failing on duplicates
	n, err = seedDatabase(ctx, path)
	require.NoError(t, err)

	repo, closeFn, err := openRepository(ctx, path)
	require.NoError(t, err)
	defer closeFn()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, n, count)

	dock, err := repo.List(ctx, activity.Filter{Building: "Building B", Zone: "Rear"})
	require.NoError(t, err)
	assert.Len(t, dock, 3)
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug", false)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	l, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(0))

	_, err = newLogger("chatty", false)
	assert.Error(t, err)
}
