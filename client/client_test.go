// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/api"
	"github.com/situ8/situ/clustering"
)

func setupClientTest(t *testing.T) (*Client, *bytes.Buffer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := activity.NewRepository(db)
	require.NoError(t, repo.CreateSchema(context.Background()))

	srv := httptest.NewServer(api.NewServer(clustering.NewEngine(), repo).Router())
	t.Cleanup(srv.Close)

	trace := &bytes.Buffer{}

	c, err := New(Options{BaseURL: srv.URL + "/", Trace: trace, UserAgent: "situ-test"})
	require.NoError(t, err)

	return c, trace
}

func lobbyActivity(id string, minute int) *activity.Activity {
	return &activity.Activity{
		ID:        id,
		Category:  activity.CategoryTailgating,
		Title:     "Tailgating detected",
		Priority:  activity.PriorityHigh,
		Location:  activity.Location{Location: "Main Entrance", Building: "A"},
		Timestamp: time.Date(2025, 8, 21, 10, minute, 0, 0, time.UTC),
	}
}

func TestClusterRemote(t *testing.T) {
	c, trace := setupClientTest(t)
	strategy := clustering.StrategyLocation

	res, err := c.Cluster(context.Background(), clustering.Request{
		Activities: []*activity.Activity{lobbyActivity("a", 0), lobbyActivity("b", 1), lobbyActivity("c", 2)},
		Overrides:  &clustering.Overrides{Strategy: &strategy},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalActivities)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, []string{"a", "b", "c"}, res.Clusters[0].MemberIDs())
	assert.Equal(t, clustering.StrategyLocation, res.Strategy)
	assert.Contains(t, trace.String(), "POST /api/clusters")
	assert.Contains(t, trace.String(), "situ-test")
}

func TestSaveListAndClusterStored(t *testing.T) {
	c, _ := setupClientTest(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.SaveActivity(ctx, lobbyActivity(id, i)))
	}

	listed, err := c.ListActivities(ctx, Query{Filter: activity.Filter{Building: "A", Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	window := 10.0
	res, err := c.ClusterStored(ctx, Query{
		Filter:    activity.Filter{Since: time.Date(2025, 8, 21, 0, 0, 0, 0, time.UTC)},
		Overrides: &clustering.Overrides{TimeWindowMinutes: &window},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TotalActivities)
	assert.Len(t, res.Clusters, 1)
}

func TestAPIErrors(t *testing.T) {
	c, _ := setupClientTest(t)

	err := c.SaveActivity(context.Background(), &activity.Activity{ID: "x"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	assert.Contains(t, err.Error(), "title is empty")

	_, err = c.Cluster(context.Background(), clustering.Request{Activities: []*activity.Activity{lobbyActivity("a", 0), lobbyActivity("a", 1)}})
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(Options{BaseURL: "localhost:8080"})
	assert.Error(t, err)

	_, err = New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestQueryValues(t *testing.T) {
	strategy := clustering.StrategyTemporal
	smart := false

	q := Query{
		Filter: activity.Filter{
			Building:   "A",
			Categories: []activity.Category{activity.CategoryMedical, activity.CategoryPatrol},
			Limit:      20,
		},
		Overrides: &clustering.Overrides{Strategy: &strategy, EnableSmartClustering: &smart},
	}

	assert.Equal(t, "building=A&category=medical&category=patrol&limit=20&smart=false&strategy=temporal", q.values().Encode())
}
