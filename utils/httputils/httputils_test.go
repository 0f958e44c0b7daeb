// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dummyRoundTripper records the last request and answers with a fixed body.
type dummyRoundTripper struct {
	lastRequest *http.Request
	body        string
}

func (d *dummyRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
	}, nil
}

func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &dummyRoundTripper{body: "response body"},
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/api/clusters", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")

	_, err = lt.RoundTrip(req)
	require.NoError(t, err)

	logContent := logBuffer.String()
	assert.Contains(t, logContent, "> GET /api/clusters")
	assert.Contains(t, logContent, "< RESPONSE: [")
	assert.Contains(t, logContent, "response body")
	assert.Contains(t, logContent, "Authorization: [redacted]")
	assert.NotContains(t, logContent, "secret-token")
}

func TestLoggingRoundTripperWithoutWriter(t *testing.T) {
	dummy := &dummyRoundTripper{}
	lt := &LoggingRoundTripper{Transport: dummy}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = lt.RoundTrip(req)
	require.NoError(t, err)
	assert.Same(t, req, dummy.lastRequest)
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	dummy := &dummyRoundTripper{}
	atr := &AppendRequestHeadersRoundTripper{
		Transport: dummy,
		Headers:   map[string]string{"X-Test-Header": "TestValue"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org", nil)
	require.NoError(t, err)

	_, err = atr.RoundTrip(req)
	require.NoError(t, err)

	require.NotNil(t, dummy.lastRequest)
	assert.Equal(t, "TestValue", dummy.lastRequest.Header.Get("X-Test-Header"))
	assert.Empty(t, req.Header.Get("X-Test-Header"), "original request must not be modified")
}
