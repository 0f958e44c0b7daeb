// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package clustering groups related security activities into clusters using
// spatial, categorical, temporal and lexical heuristics.
package clustering

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/situ8/situ/activity"
)

// Request is the input of one clustering run.
type Request struct {
	Activities []*activity.Activity `json:"activities"`
	Overrides  *Overrides           `json:"config,omitempty"`
}

// Result is the ordered clustering of a request. Every input activity belongs to
// exactly one cluster.
type Result struct {
	Clusters             []*Cluster    `json:"clusters"`
	TotalActivities      int           `json:"total_activities"`
	TotalClusters        int           `json:"total_clusters"`
	ClusteringEfficiency float64       `json:"clustering_efficiency"`
	ExecutionTime        time.Duration `json:"execution_time_ns"`
	Strategy             Strategy      `json:"strategy"`
	ExceedsMaxClusters   bool          `json:"exceeds_max_clusters,omitempty"`
}

// Recorder observes finished runs.
type Recorder interface {
	ObserveClustering(strategy string, elapsed time.Duration, efficiency float64, err error)
}

// Engine runs clustering requests. It is safe for concurrent use.
type Engine struct {
	defaults Config
	logger   *zap.Logger
	recorder Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithDefaults replaces DefaultConfig as the base that request overrides merge onto.
func WithDefaults(cfg Config) Option {
	return func(e *Engine) {
		e.defaults = cfg
	}
}

// WithRecorder reports every run to r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// NewEngine returns an engine using DefaultConfig unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{defaults: DefaultConfig(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Defaults returns the configuration requests are merged onto.
func (e *Engine) Defaults() Config {
	return e.defaults
}

// Execute clusters the request activities. Failures are returned as *Error and never
// come with a partial result.
func (e *Engine) Execute(ctx context.Context, req Request) (res *Result, err error) {
	start := time.Now()
	cfg, adjusted := e.defaults.Merge(req.Overrides).sanitized()

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fail("execute", fmt.Errorf("panic: %v", r))
		}

		elapsed := time.Since(start)
		if res != nil {
			res.ExecutionTime = elapsed
		}

		e.observe(cfg, res, elapsed, err)
	}()

	if len(adjusted) > 0 {
		e.logger.Debug("clamped clustering config", zap.Strings("adjusted", adjusted))
	}

	if err := checkInput(req.Activities); err != nil {
		return nil, err
	}

	return e.run(ctx, req.Activities, cfg)
}

func (e *Engine) run(ctx context.Context, activities []*activity.Activity, cfg Config) (*Result, error) {
	s := newScorer(cfg)

	var clusters []*Cluster

	if len(activities) < max(2, cfg.MinActivitiesForCluster) {
		clusters = make([]*Cluster, 0, len(activities))
		for _, a := range activities {
			clusters = append(clusters, singleton(a, cfg.Strategy))
		}

		sortByImportance(clusters)

		return e.result(activities, clusters, cfg, false), nil
	}

	groups := selectorFor(cfg.Strategy)(activities, s)
	if err := checkpoint(ctx, "select"); err != nil {
		return nil, err
	}

	clusters = make([]*Cluster, 0, len(groups))
	for _, g := range groups {
		clusters = append(clusters, build(g, s))
	}

	if err := checkpoint(ctx, "build"); err != nil {
		return nil, err
	}

	if cfg.EnableSmartClustering {
		clusters = refine(clusters, s)
		if err := checkpoint(ctx, "refine"); err != nil {
			return nil, err
		}
	}

	sortByImportance(clusters)

	if err := checkpoint(ctx, "sort"); err != nil {
		return nil, err
	}

	return e.result(activities, clusters, cfg, true), nil
}

func (e *Engine) result(activities []*activity.Activity, clusters []*Cluster, cfg Config, grouped bool) *Result {
	res := &Result{
		Clusters:        clusters,
		TotalActivities: len(activities),
		TotalClusters:   len(clusters),
		Strategy:        cfg.Strategy,
	}

	if grouped && len(activities) > 0 {
		res.ClusteringEfficiency = 1 - float64(len(clusters))/float64(len(activities))
	}

	if cfg.MaxClusters > 0 && len(clusters) > cfg.MaxClusters {
		res.ExceedsMaxClusters = true
		e.logger.Warn("clustering produced more clusters than configured",
			zap.Int("clusters", len(clusters)),
			zap.Int("max_clusters", cfg.MaxClusters))
	}

	return res
}

func (e *Engine) observe(cfg Config, res *Result, elapsed time.Duration, err error) {
	var efficiency float64

	if err != nil {
		e.logger.Error("clustering failed", zap.String("strategy", string(cfg.Strategy)), zap.Error(err))
	} else {
		efficiency = res.ClusteringEfficiency
		e.logger.Debug("clustered activities",
			zap.String("strategy", string(cfg.Strategy)),
			zap.Int("activities", res.TotalActivities),
			zap.Int("clusters", res.TotalClusters),
			zap.Float64("efficiency", efficiency),
			zap.Duration("elapsed", elapsed))
	}

	if e.recorder != nil {
		e.recorder.ObserveClustering(string(cfg.Strategy), elapsed, efficiency, err)
	}
}

// checkInput rejects records the engine cannot partition.
func checkInput(activities []*activity.Activity) error {
	seen := make(map[string]struct{}, len(activities))

	for i, a := range activities {
		if a == nil {
			return fail("validate", fmt.Errorf("activity %d is nil", i))
		}

		if a.ID == "" {
			return fail("validate", fmt.Errorf("activity %d has no id", i))
		}

		if _, ok := seen[a.ID]; ok {
			return fail("validate", fmt.Errorf("duplicate activity id %q", a.ID))
		}

		seen[a.ID] = struct{}{}
	}

	return nil
}

func checkpoint(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return fail(op, err)
	}

	return nil
}

