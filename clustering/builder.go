// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/utils/textutils"
)

// Kind distinguishes one-member clusters from real groups.
type Kind string

const (
	KindSingleton Kind = "singleton"
	KindGroup     Kind = "group"
)

// clusterNamespace seeds the name-based cluster IDs, so equal member lists always
// produce the same ID.
var clusterNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("situ8.clusters"))

// TimeRange spans the timestamps of a cluster's members.
type TimeRange struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
}

// Cluster is a group of related activities, or a single activity.
type Cluster struct {
	ID               string               `json:"id"`
	Kind             Kind                 `json:"kind"`
	Members          []*activity.Activity `json:"members"`
	Representative   *activity.Activity   `json:"representative"`
	Count            int                  `json:"count"`
	HighestPriority  activity.Priority    `json:"highest_priority"`
	DominantCategory activity.Category    `json:"dominant_category"`
	Location         string               `json:"location"`
	TimeRange        TimeRange            `json:"time_range"`
	CoherenceScore   float64              `json:"coherence_score"`
	ConfidenceScore  float64              `json:"confidence_score"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	Strategy         Strategy             `json:"strategy"`
}

// IsSingleton reports whether the cluster wraps exactly one activity.
func (c *Cluster) IsSingleton() bool {
	return c.Kind == KindSingleton
}

// MemberIDs returns the member IDs in cluster order.
func (c *Cluster) MemberIDs() []string {
	ids := make([]string, len(c.Members))
	for i, m := range c.Members {
		ids[i] = m.ID
	}

	return ids
}

func clusterID(members []*activity.Activity) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(ids, "\x00"))).String()
}

// singleton wraps one activity; its scores are fixed at 1.
func singleton(a *activity.Activity, strategy Strategy) *Cluster {
	return &Cluster{
		ID:               clusterID([]*activity.Activity{a}),
		Kind:             KindSingleton,
		Members:          []*activity.Activity{a},
		Representative:   a,
		Count:            1,
		HighestPriority:  a.Priority,
		DominantCategory: a.Category,
		Location:         a.Location.String(),
		TimeRange:        TimeRange{Start: a.Timestamp, End: a.Timestamp},
		CoherenceScore:   1,
		ConfidenceScore:  1,
		Title:            a.Title,
		Description:      a.Description,
		Strategy:         strategy,
	}
}

// build derives every cluster attribute from its members.
func build(members group, s *scorer) *Cluster {
	if len(members) == 1 {
		return singleton(members[0], s.cfg.Strategy)
	}

	rep := representative(members)
	c := &Cluster{
		ID:               clusterID(members),
		Kind:             KindGroup,
		Members:          members,
		Representative:   rep,
		Count:            len(members),
		HighestPriority:  rep.Priority,
		DominantCategory: dominantCategory(members),
		Location:         locationSummary(rep, members),
		TimeRange:        timeRange(members),
		CoherenceScore:   coherence(members, s),
		Strategy:         s.cfg.Strategy,
	}

	c.Title = title(c)
	c.Description = describe(members)
	c.ConfidenceScore = confidence(c, s.cfg.EnableSmartClustering)

	return c
}

// representative picks the most urgent member, preferring the most recent one on
// equal priority. The first member wins a full tie.
func representative(members group) *activity.Activity {
	best := members[0]

	for _, m := range members[1:] {
		switch br, mr := best.Priority.Rank(), m.Priority.Rank(); {
		case mr > br:
			best = m
		case mr == br && m.Timestamp.After(best.Timestamp):
			best = m
		}
	}

	return best
}

// dominantCategory is the most frequent category, first occurrence on ties.
func dominantCategory(members group) activity.Category {
	counts := make(map[activity.Category]int)

	var best activity.Category

	for _, m := range members {
		counts[m.Category]++
		if counts[m.Category] > counts[best] || best == "" {
			best = m.Category
		}
	}

	return best
}

func timeRange(members group) TimeRange {
	tr := TimeRange{Start: members[0].Timestamp, End: members[0].Timestamp}

	for _, m := range members[1:] {
		if m.Timestamp.Before(tr.Start) {
			tr.Start = m.Timestamp
		}

		if m.Timestamp.After(tr.End) {
			tr.End = m.Timestamp
		}
	}

	tr.DurationMinutes = tr.End.Sub(tr.Start).Minutes()

	return tr
}

// coherence is the mean hybrid similarity over all unordered member pairs.
func coherence(members group, s *scorer) float64 {
	if len(members) < 2 {
		return 1
	}

	var (
		sum   float64
		pairs int
	)

	for i := range members {
		for j := i + 1; j < len(members); j++ {
			sum += s.similarity(members[i], members[j])
			pairs++
		}
	}

	return sum / float64(pairs)
}

func confidence(c *Cluster, smart bool) float64 {
	if c.Count == 1 {
		return 1
	}

	if !smart {
		return 0.8
	}

	return (c.CoherenceScore + math.Min(float64(c.Count)/10, 1)) / 2
}

func locationSummary(rep *activity.Activity, members group) string {
	others := 0
	seen := []activity.Location{rep.Location}

	for _, m := range members {
		known := false

		for _, l := range seen {
			if l.Equal(m.Location) {
				known = true

				break
			}
		}

		if !known {
			seen = append(seen, m.Location)
			others++
		}
	}

	switch others {
	case 0:
		return rep.Location.String()
	case 1:
		return rep.Location.String() + " (+1 other location)"
	default:
		return fmt.Sprintf("%s (+%d other locations)", rep.Location.String(), others)
	}
}

func title(c *Cluster) string {
	switch c.Strategy {
	case StrategyLocation:
		return fmt.Sprintf("%d activities at %s", c.Count, c.Representative.Location.String())
	case StrategyCategory:
		return fmt.Sprintf("%d %s activities", c.Count, strings.ToLower(textutils.Humanize(string(c.DominantCategory))))
	default:
		return fmt.Sprintf("%d related activities", c.Count)
	}
}

// describe lists the distinct categories with their counts, then the distinct
// locations, both in first-occurrence order.
func describe(members group) string {
	var (
		categories []activity.Category
		locations  []string
	)

	counts := make(map[activity.Category]int)
	seenLocation := make(map[string]bool)

	for _, m := range members {
		if counts[m.Category] == 0 {
			categories = append(categories, m.Category)
		}

		counts[m.Category]++

		if loc := m.Location.String(); loc != "" && !seenLocation[loc] {
			seenLocation[loc] = true
			locations = append(locations, loc)
		}
	}

	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = fmt.Sprintf("%s (%d)", c, counts[c])
	}

	desc := "Categories: " + strings.Join(parts, ", ")
	if len(locations) > 0 {
		desc += ". Locations: " + strings.Join(locations, "; ")
	}

	return desc
}
