// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"sort"

	"github.com/situ8/situ/activity"
)

const (
	// hybridThreshold is the minimum similarity for a candidate to join an anchor.
	hybridThreshold = 0.6
	// lexicalThreshold is the minimum keyword Jaccard for the lexical strategy.
	lexicalThreshold = 0.7
)

type group []*activity.Activity

// selector partitions activities into groups. Every activity appears in exactly
// one group and every group is non-empty.
type selector func(activities []*activity.Activity, s *scorer) []group

func selectorFor(strategy Strategy) selector {
	switch strategy {
	case StrategyLocation:
		return byLocation
	case StrategyCategory:
		return byCategory
	case StrategyTemporal:
		return byTime
	case StrategyLexical:
		return byKeywords
	default:
		return byHybrid
	}
}

// keepOrSplit returns g as a single group when it is large enough, otherwise one
// group per member.
func keepOrSplit(g group, minSize int) []group {
	if len(g) >= minSize {
		return []group{g}
	}

	out := make([]group, 0, len(g))
	for _, a := range g {
		out = append(out, group{a})
	}

	return out
}

// anchored runs the greedy visited-set pass: each unvisited activity anchors a group
// of the later unvisited activities that match it.
func anchored(activities []*activity.Activity, minSize int, match func(anchor, other *activity.Activity) bool) []group {
	groups := make([]group, 0, len(activities))
	visited := make([]bool, len(activities))

	for i, anchor := range activities {
		if visited[i] {
			continue
		}

		g := group{anchor}
		visited[i] = true

		for j := i + 1; j < len(activities); j++ {
			if visited[j] {
				continue
			}

			if match(anchor, activities[j]) {
				g = append(g, activities[j])
				visited[j] = true
			}
		}

		groups = append(groups, keepOrSplit(g, minSize)...)
	}

	return groups
}

func byLocation(activities []*activity.Activity, s *scorer) []group {
	return anchored(activities, s.cfg.MinActivitiesForCluster, func(anchor, other *activity.Activity) bool {
		return anchor.Location.Equal(other.Location) && s.withinWindow(anchor, other)
	})
}

func byKeywords(activities []*activity.Activity, s *scorer) []group {
	return anchored(activities, s.cfg.MinActivitiesForCluster, func(anchor, other *activity.Activity) bool {
		return s.lexical(anchor, other) > lexicalThreshold
	})
}

func byCategory(activities []*activity.Activity, s *scorer) []group {
	var order []activity.Category

	buckets := make(map[activity.Category]group)

	for _, a := range activities {
		if _, ok := buckets[a.Category]; !ok {
			order = append(order, a.Category)
		}

		buckets[a.Category] = append(buckets[a.Category], a)
	}

	groups := make([]group, 0, len(order))
	for _, c := range order {
		groups = append(groups, keepOrSplit(buckets[c], s.cfg.MinActivitiesForCluster)...)
	}

	return groups
}

// byTime sweeps the activities in timestamp order and closes a window whenever the
// gap to the previous activity exceeds the configured window.
func byTime(activities []*activity.Activity, s *scorer) []group {
	sorted := make([]*activity.Activity, len(activities))
	copy(sorted, activities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var (
		groups  []group
		current group
	)

	for _, a := range sorted {
		if len(current) > 0 && !s.withinWindow(current[len(current)-1], a) {
			groups = append(groups, keepOrSplit(current, s.cfg.MinActivitiesForCluster)...)
			current = nil
		}

		current = append(current, a)
	}

	if len(current) > 0 {
		groups = append(groups, keepOrSplit(current, s.cfg.MinActivitiesForCluster)...)
	}

	return groups
}

// byHybrid groups an anchor with every unvisited activity scoring above the hybrid
// threshold. An undersized group releases its candidates back to the pool.
func byHybrid(activities []*activity.Activity, s *scorer) []group {
	type candidate struct {
		index int
		score float64
	}

	groups := make([]group, 0, len(activities))
	visited := make([]bool, len(activities))

	for i, anchor := range activities {
		if visited[i] {
			continue
		}

		visited[i] = true

		var candidates []candidate

		for j, other := range activities {
			if visited[j] {
				continue
			}

			if score := s.similarity(anchor, other); score > hybridThreshold {
				candidates = append(candidates, candidate{index: j, score: score})
			}
		}

		if len(candidates)+1 < s.cfg.MinActivitiesForCluster {
			groups = append(groups, group{anchor})

			continue
		}

		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].score > candidates[b].score
		})

		g := group{anchor}
		for _, c := range candidates {
			g = append(g, activities[c.index])
			visited[c.index] = true
		}

		groups = append(groups, g)
	}

	return groups
}
