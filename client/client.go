// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package client talks to a remote situ server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/utils/httputils"
)

const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the server root, e.g. http://localhost:8080.
	BaseURL string
	// Timeout bounds each request; zero means 30 seconds.
	Timeout time.Duration
	// Trace receives a dump of every exchange when not nil.
	Trace     io.Writer
	UserAgent string
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server answered %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client is a situ API client.
type Client struct {
	base *url.URL
	http *http.Client
}

// New validates the options and builds a client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	headers := map[string]string{"Accept": "application/json"}
	if opts.UserAgent != "" {
		headers["User-Agent"] = opts.UserAgent
	}

	return &Client{base: base, http: httputils.NewClient(timeout, opts.Trace, headers)}, nil
}

// Query selects stored activities and tunes the clustering run over them.
type Query struct {
	activity.Filter
	Overrides *clustering.Overrides
}

func (q Query) values() url.Values {
	v := url.Values{}

	if !q.Since.IsZero() {
		v.Set("since", q.Since.Format(time.RFC3339))
	}

	if !q.Until.IsZero() {
		v.Set("until", q.Until.Format(time.RFC3339))
	}

	if q.Building != "" {
		v.Set("building", q.Building)
	}

	if q.Zone != "" {
		v.Set("zone", q.Zone)
	}

	for _, c := range q.Categories {
		v.Add("category", string(c))
	}

	if q.Near != nil {
		v.Set("lat", strconv.FormatFloat(q.Near.Lat, 'f', -1, 64))
		v.Set("lng", strconv.FormatFloat(q.Near.Lng, 'f', -1, 64))

		if q.RadiusMeters > 0 {
			v.Set("radius", strconv.FormatFloat(q.RadiusMeters, 'f', -1, 64))
		}
	}

	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}

	if o := q.Overrides; o != nil {
		if o.Strategy != nil {
			v.Set("strategy", string(*o.Strategy))
		}

		if o.TimeWindowMinutes != nil {
			v.Set("window", strconv.FormatFloat(*o.TimeWindowMinutes, 'f', -1, 64))
		}

		if o.MinActivitiesForCluster != nil {
			v.Set("min", strconv.Itoa(*o.MinActivitiesForCluster))
		}

		if o.MaxClusters != nil {
			v.Set("max_clusters", strconv.Itoa(*o.MaxClusters))
		}

		if o.EnableSmartClustering != nil {
			v.Set("smart", strconv.FormatBool(*o.EnableSmartClustering))
		}
	}

	return v
}

// Cluster sends activities to the server for clustering.
func (c *Client) Cluster(ctx context.Context, req clustering.Request) (*clustering.Result, error) {
	var res clustering.Result
	if err := c.do(ctx, http.MethodPost, "/api/clusters", nil, req, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// ClusterStored clusters the activities the server already holds.
func (c *Client) ClusterStored(ctx context.Context, q Query) (*clustering.Result, error) {
	var res clustering.Result
	if err := c.do(ctx, http.MethodGet, "/api/clusters", q.values(), nil, &res); err != nil {
		return nil, err
	}

	return &res, nil
}

// ListActivities returns stored activities matching q.
func (c *Client) ListActivities(ctx context.Context, q Query) ([]*activity.Activity, error) {
	var out []*activity.Activity
	if err := c.do(ctx, http.MethodGet, "/api/activities", q.values(), nil, &out); err != nil {
		return nil, err
	}

	return out, nil
}

// SaveActivity stores one activity on the server.
func (c *Client) SaveActivity(ctx context.Context, a *activity.Activity) error {
	return c.do(ctx, http.MethodPost, "/api/activities", nil, a, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base.JoinPath(path)
	u.RawQuery = query.Encode()

	var body io.Reader

	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}

		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil {
		_, err = io.Copy(io.Discard, resp.Body)

		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}

	return nil
}

func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}

	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		msg = payload.Error
	}

	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
