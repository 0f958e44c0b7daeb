// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/ambient"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/observability"
)

const testSecret = "s3cr3t"

type testEnv struct {
	router  *gin.Engine
	repo    activity.Repository
	metrics *observability.Metrics
}

func setupServerTest(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := activity.NewRepository(db)
	require.NoError(t, repo.CreateSchema(context.Background()))

	metrics := observability.NewMetrics()
	engine := clustering.NewEngine(clustering.WithRecorder(metrics))

	opts = append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithMetrics(metrics),
		WithAmbientSecret(testSecret),
	}, opts...)

	return &testEnv{
		router:  NewServer(engine, repo, opts...).Router(),
		repo:    repo,
		metrics: metrics,
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	return w
}

func seedActivity(id string, minute int, loc activity.Location, category activity.Category) *activity.Activity {
	return &activity.Activity{
		ID:        id,
		Category:  category,
		Title:     "Tailgating detected",
		Priority:  activity.PriorityHigh,
		Location:  loc,
		Timestamp: time.Date(2025, 8, 21, 10, minute, 0, 0, time.UTC),
	}
}

var entrance = activity.Location{Location: "Main Entrance", Building: "A", Zone: "Main Entrance"}

func TestHealth(t *testing.T) {
	env := setupServerTest(t)

	w := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestClusterActivitiesAPI(t *testing.T) {
	env := setupServerTest(t)

	body := `{
		"activities": [
			{"id": "t1", "category": "tailgating", "title": "Tailgating detected", "priority": "high", "building": "A", "zone": "Main Entrance", "location": "Main Entrance", "timestamp": "2025-08-21T10:00:00Z"},
			{"id": "t2", "category": "tailgating", "title": "Tailgating detected", "priority": "high", "building": "A", "zone": "Main Entrance", "location": "Main Entrance", "timestamp": "2025-08-21T10:01:00Z"},
			{"id": "t3", "category": "tailgating", "title": "Tailgating detected", "priority": "medium", "building": "A", "zone": "Main Entrance", "location": "Main Entrance", "timestamp": "2025-08-21T10:02:00Z"},
			{"id": "p1", "category": "patrol", "title": "Checkpoint scanned", "priority": "low", "location": {"location": "Dock", "building": "B"}, "timestamp": "2025-08-21T11:30:00Z"}
		],
		"config": {"strategy": "location", "time_window_minutes": 15}
	}`

	w := env.do(t, http.MethodPost, "/api/clusters", []byte(body), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		clustering.Result
		Entries []map[string]json.RawMessage `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Equal(t, 4, resp.TotalActivities)
	assert.Equal(t, 2, resp.TotalClusters)
	assert.Equal(t, clustering.StrategyLocation, resp.Strategy)
	require.Len(t, resp.Clusters, 2)
	assert.Equal(t, 3, resp.Clusters[0].Count)
	assert.Contains(t, resp.Clusters[0].Location, "A")
	assert.Equal(t, []string{"t1", "t2", "t3"}, resp.Clusters[0].MemberIDs())

	require.Len(t, resp.Entries, 2)
	assert.JSONEq(t, `"cluster"`, string(resp.Entries[0]["kind"]))
	assert.JSONEq(t, `"activity"`, string(resp.Entries[1]["kind"]))
}

func TestClusterActivitiesRejectsBadInput(t *testing.T) {
	env := setupServerTest(t, WithBatchLimit(2))

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed json", `{"activities": [`, http.StatusBadRequest},
		{"unknown strategy", `{"activities": [], "config": {"strategy": "nearest"}}`, http.StatusBadRequest},
		{"duplicate ids", `{"activities": [{"id": "a", "title": "x"}, {"id": "a", "title": "y"}]}`, http.StatusBadRequest},
		{"too many", `{"activities": [{"id": "a"}, {"id": "b"}, {"id": "c"}]}`, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/clusters", []byte(tt.body), nil)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}

	w := env.do(t, http.MethodPost, "/api/clusters", []byte(`{"activities": [{"id": "a"}, {"id": "a"}]}`), nil)
	assert.Contains(t, w.Body.String(), "activity clustering failed")
}

func TestClusterStoredAPI(t *testing.T) {
	env := setupServerTest(t)
	ctx := context.Background()

	require.NoError(t, env.repo.BulkInsert(ctx, []*activity.Activity{
		seedActivity("t1", 0, entrance, activity.CategoryTailgating),
		seedActivity("t2", 1, entrance, activity.CategoryTailgating),
		seedActivity("t3", 2, entrance, activity.CategoryTailgating),
		seedActivity("x1", 40, activity.Location{Location: "Dock", Building: "B"}, activity.CategoryAlert),
	}))

	w := env.do(t, http.MethodGet, "/api/clusters?building=A&strategy=location&window=15", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res clustering.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 3, res.TotalActivities)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 3, res.Clusters[0].Count)

	w = env.do(t, http.MethodGet, "/api/clusters?strategy=proximity", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/clusters?since=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivitiesAPI(t *testing.T) {
	env := setupServerTest(t)

	body := `{"id": "m1", "category": "Medical", "title": "Person down", "priority": "critical", "location": "Lobby", "building": "A", "timestamp": "2025-08-21T10:00:00Z", "point": {"lat": -34.9011, "lng": -56.1645}}`

	w := env.do(t, http.MethodPost, "/api/activities", []byte(body), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/activities", []byte(`{"id": "m2", "title": ""}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title is empty")

	w = env.do(t, http.MethodGet, "/api/activities?category=medical", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed []*activity.Activity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "m1", listed[0].ID)
	assert.Equal(t, activity.CategoryMedical, listed[0].Category)

	w = env.do(t, http.MethodGet, "/api/activities?lat=-34.9012&lng=-56.1646&radius=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = env.do(t, http.MethodGet, "/api/activities?lat=-30&lng=-56&radius=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/activities?lat=-34.9", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/activities?lat=95&lng=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

const webhookBody = `{
	"alert_id": "alert-123",
	"type": "tailgate",
	"location": "building_a_lobby",
	"timestamp": "2025-08-21T10:15:00Z",
	"severity": "high",
	"confidence": 0.9,
	"metadata": {"camera_id": "cam_001", "zone": "Lobby", "building": "A"}
}`

func TestAmbientWebhook(t *testing.T) {
	env := setupServerTest(t)

	header := http.Header{ambient.SignatureHeader: {ambient.Sign([]byte(webhookBody), testSecret)}}

	w := env.do(t, http.MethodPost, "/api/webhooks/ambient", []byte(webhookBody), header)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"success","activity_id":"ambient_alert-123","message":"Webhook processed successfully"}`, w.Body.String())

	stored, err := env.repo.List(context.Background(), activity.Filter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, activity.CategoryTailgating, stored[0].Category)
	assert.Equal(t, "Tailgate - building_a_lobby", stored[0].Title)
	assert.Equal(t, ambient.Source, stored[0].Source)
}

func TestAmbientWebhookRejections(t *testing.T) {
	env := setupServerTest(t)

	sign := func(body string) http.Header {
		return http.Header{ambient.SignatureHeader: {ambient.Sign([]byte(body), testSecret)}}
	}

	tests := []struct {
		name   string
		body   string
		header http.Header
		code   int
		want   string
	}{
		{"missing signature", webhookBody, nil, http.StatusUnauthorized, "Invalid signature"},
		{"wrong signature", webhookBody, http.Header{ambient.SignatureHeader: {"sha256=00"}}, http.StatusUnauthorized, "Invalid signature"},
		{"malformed json", `{"alert_id":`, sign(`{"alert_id":`), http.StatusBadRequest, "Invalid JSON payload"},
		{"invalid payload", `{"alert_id":"a"}`, sign(`{"alert_id":"a"}`), http.StatusBadRequest, "missing required field: type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/webhooks/ambient", []byte(tt.body), tt.header)
			assert.Equal(t, tt.code, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	n, err := env.repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAmbientWebhookWithoutSecret(t *testing.T) {
	env := setupServerTest(t, WithAmbientSecret(""))

	w := env.do(t, http.MethodPost, "/api/webhooks/ambient", []byte(webhookBody), nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServerTest(t)

	env.do(t, http.MethodPost, "/api/clusters", []byte(`{"activities": []}`), nil)
	env.do(t, http.MethodPost, "/api/webhooks/ambient", []byte(webhookBody), nil)

	w := env.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `situ_clustering_runs_total{strategy="hybrid"} 1`)
	assert.Contains(t, text, `situ_webhook_requests_total{outcome="denied"} 1`)
	assert.True(t, strings.Contains(text, `route="/api/clusters"`))
}
