// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"fmt"
	"strings"
)

// Strategy selects the grouping heuristic.
type Strategy string

const (
	StrategyLocation Strategy = "location"
	StrategyCategory Strategy = "category"
	StrategyTemporal Strategy = "temporal"
	StrategyLexical  Strategy = "lexical"
	StrategyHybrid   Strategy = "hybrid"
)

// Strategies lists every supported strategy.
var Strategies = []Strategy{StrategyLocation, StrategyCategory, StrategyTemporal, StrategyLexical, StrategyHybrid}

// Valid reports whether s is one of Strategies.
func (s Strategy) Valid() bool {
	for _, known := range Strategies {
		if s == known {
			return true
		}
	}

	return false
}

// ParseStrategy parses a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown clustering strategy %q", name)
	}

	return s, nil
}

// UnmarshalText lets JSON and YAML decoders reject unknown strategies.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Config controls a clustering run.
type Config struct {
	// MaxDistance is the spatial tolerance. It is carried for callers and not used
	// by any strategy: locations are compared by exact descriptor equality.
	MaxDistance             float64  `json:"max_distance"`
	TimeWindowMinutes       float64  `json:"time_window_minutes"`
	MinActivitiesForCluster int      `json:"min_activities_for_cluster"`
	Strategy                Strategy `json:"strategy"`
	LocationWeight          float64  `json:"location_weight"`
	CategoryWeight          float64  `json:"category_weight"`
	TemporalWeight          float64  `json:"temporal_weight"`
	LexicalWeight           float64  `json:"lexical_weight"`
	// MaxClusters is advisory, see Result.ExceedsMaxClusters. Zero means unlimited.
	MaxClusters           int  `json:"max_clusters"`
	EnableSmartClustering bool `json:"enable_smart_clustering"`
}

// DefaultConfig returns the configuration used when a request overrides nothing.
func DefaultConfig() Config {
	return Config{
		MaxDistance:             300,
		TimeWindowMinutes:       15,
		MinActivitiesForCluster: 2,
		Strategy:                StrategyHybrid,
		LocationWeight:          0.4,
		CategoryWeight:          0.3,
		TemporalWeight:          0.2,
		LexicalWeight:           0.1,
		MaxClusters:             50,
		EnableSmartClustering:   true,
	}
}

// Overrides is a partial Config: nil fields keep the base value.
type Overrides struct {
	MaxDistance             *float64  `json:"max_distance,omitempty" yaml:"max_distance"`
	TimeWindowMinutes       *float64  `json:"time_window_minutes,omitempty" yaml:"time_window_minutes"`
	MinActivitiesForCluster *int      `json:"min_activities_for_cluster,omitempty" yaml:"min_activities_for_cluster"`
	Strategy                *Strategy `json:"strategy,omitempty" yaml:"strategy"`
	LocationWeight          *float64  `json:"location_weight,omitempty" yaml:"location_weight"`
	CategoryWeight          *float64  `json:"category_weight,omitempty" yaml:"category_weight"`
	TemporalWeight          *float64  `json:"temporal_weight,omitempty" yaml:"temporal_weight"`
	LexicalWeight           *float64  `json:"lexical_weight,omitempty" yaml:"lexical_weight"`
	MaxClusters             *int      `json:"max_clusters,omitempty" yaml:"max_clusters"`
	EnableSmartClustering   *bool     `json:"enable_smart_clustering,omitempty" yaml:"enable_smart_clustering"`
}

// Merge returns a copy of c with every non-nil override applied.
func (c Config) Merge(o *Overrides) Config {
	if o == nil {
		return c
	}

	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}

	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}

	setFloat(&c.MaxDistance, o.MaxDistance)
	setFloat(&c.TimeWindowMinutes, o.TimeWindowMinutes)
	setInt(&c.MinActivitiesForCluster, o.MinActivitiesForCluster)
	setFloat(&c.LocationWeight, o.LocationWeight)
	setFloat(&c.CategoryWeight, o.CategoryWeight)
	setFloat(&c.TemporalWeight, o.TemporalWeight)
	setFloat(&c.LexicalWeight, o.LexicalWeight)
	setInt(&c.MaxClusters, o.MaxClusters)

	if o.Strategy != nil {
		c.Strategy = *o.Strategy
	}

	if o.EnableSmartClustering != nil {
		c.EnableSmartClustering = *o.EnableSmartClustering
	}

	return c
}

// Apply layers other on top of o; fields set in other win.
func (o Overrides) Apply(other Overrides) Overrides {
	if other.MaxDistance != nil {
		o.MaxDistance = other.MaxDistance
	}

	if other.TimeWindowMinutes != nil {
		o.TimeWindowMinutes = other.TimeWindowMinutes
	}

	if other.MinActivitiesForCluster != nil {
		o.MinActivitiesForCluster = other.MinActivitiesForCluster
	}

	if other.Strategy != nil {
		o.Strategy = other.Strategy
	}

	if other.LocationWeight != nil {
		o.LocationWeight = other.LocationWeight
	}

	if other.CategoryWeight != nil {
		o.CategoryWeight = other.CategoryWeight
	}

	if other.TemporalWeight != nil {
		o.TemporalWeight = other.TemporalWeight
	}

	if other.LexicalWeight != nil {
		o.LexicalWeight = other.LexicalWeight
	}

	if other.MaxClusters != nil {
		o.MaxClusters = other.MaxClusters
	}

	if other.EnableSmartClustering != nil {
		o.EnableSmartClustering = other.EnableSmartClustering
	}

	return o
}

// sanitized clamps out-of-range values instead of rejecting them and reports what
// it changed.
func (c Config) sanitized() (Config, []string) {
	var adjusted []string

	defaults := DefaultConfig()

	if c.TimeWindowMinutes <= 0 {
		adjusted = append(adjusted, fmt.Sprintf("time window %v -> %v", c.TimeWindowMinutes, defaults.TimeWindowMinutes))
		c.TimeWindowMinutes = defaults.TimeWindowMinutes
	}

	if c.MinActivitiesForCluster < 1 {
		adjusted = append(adjusted, fmt.Sprintf("min activities %d -> 1", c.MinActivitiesForCluster))
		c.MinActivitiesForCluster = 1
	}

	if !c.Strategy.Valid() {
		adjusted = append(adjusted, fmt.Sprintf("strategy %q -> %q", c.Strategy, StrategyHybrid))
		c.Strategy = StrategyHybrid
	}

	for _, w := range []struct {
		name  string
		value *float64
	}{
		{"location weight", &c.LocationWeight},
		{"category weight", &c.CategoryWeight},
		{"temporal weight", &c.TemporalWeight},
		{"lexical weight", &c.LexicalWeight},
	} {
		if *w.value < 0 {
			adjusted = append(adjusted, fmt.Sprintf("%s %v -> 0", w.name, *w.value))
			*w.value = 0
		}
	}

	if c.MaxClusters < 0 {
		adjusted = append(adjusted, fmt.Sprintf("max clusters %d -> 0", c.MaxClusters))
		c.MaxClusters = 0
	}

	return c, adjusted
}
