// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package observability holds the prometheus collectors of the situ service.
package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "situ"

// Outcomes used as label values.
const (
	OutcomeStored    = "stored"
	OutcomeMalformed = "malformed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeDenied    = "denied"
)

// Metrics owns a registry with every situ collector. Each instance is independent,
// so tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	clusteringRuns       *prometheus.CounterVec
	clusteringFailures   prometheus.Counter
	clusteringDuration   prometheus.Histogram
	clusteringEfficiency prometheus.Histogram
	ingestMessages       *prometheus.CounterVec
	webhookRequests      *prometheus.CounterVec
	httpRequests         *prometheus.CounterVec
	httpDuration         *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors, plus the Go runtime and process
// collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		clusteringRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clustering_runs_total",
			Help:      "Number of clustering runs by strategy.",
		}, []string{"strategy"}),
		clusteringFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clustering_failures_total",
			Help:      "Number of clustering runs that failed.",
		}),
		clusteringDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clustering_duration_seconds",
			Help:      "Clustering run duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		clusteringEfficiency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "clustering_efficiency",
			Help:      "Fraction of activities folded into other clusters per run.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 10),
		}),
		ingestMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_total",
			Help:      "Kafka activity messages by outcome.",
		}, []string{"outcome"}),
		webhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Ambient webhook requests by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.clusteringRuns,
		m.clusteringFailures,
		m.clusteringDuration,
		m.clusteringEfficiency,
		m.ingestMessages,
		m.webhookRequests,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveClustering records one clustering run.
func (m *Metrics) ObserveClustering(strategy string, elapsed time.Duration, efficiency float64, err error) {
	if err != nil {
		m.clusteringFailures.Inc()

		return
	}

	m.clusteringRuns.WithLabelValues(strategy).Inc()
	m.clusteringDuration.Observe(elapsed.Seconds())
	m.clusteringEfficiency.Observe(efficiency)
}

// RecordIngest counts a consumed Kafka message.
func (m *Metrics) RecordIngest(outcome string) {
	m.ingestMessages.WithLabelValues(outcome).Inc()
}

// RecordWebhook counts an Ambient webhook request.
func (m *Metrics) RecordWebhook(outcome string) {
	m.webhookRequests.WithLabelValues(outcome).Inc()
}

// RecordHTTP records a served request. route is the matched pattern, not the raw path.
func (m *Metrics) RecordHTTP(method, route string, status int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes Handler at /metrics on ln until ctx is done, then shuts down.
func (m *Metrics) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)

	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	}
}
