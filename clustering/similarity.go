// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"math"

	"github.com/situ8/situ/activity"
)

// Similarity returns the weighted hybrid score of two activities under cfg. The
// weights are not renormalized; the sum is clamped into [0, 1].
func Similarity(a, b *activity.Activity, cfg Config) float64 {
	cfg, _ = cfg.sanitized()

	return newScorer(cfg).similarity(a, b)
}

// scorer computes pairwise similarity for one run and memoizes keyword sets per
// record, so records sharing an ID keep their own keywords.
type scorer struct {
	cfg      Config
	keywords map[*activity.Activity]keywordSet
}

func newScorer(cfg Config) *scorer {
	return &scorer{cfg: cfg, keywords: make(map[*activity.Activity]keywordSet)}
}

func (s *scorer) keywordsOf(a *activity.Activity) keywordSet {
	if set, ok := s.keywords[a]; ok {
		return set
	}

	set := newKeywordSet(a)
	s.keywords[a] = set

	return set
}

func (s *scorer) similarity(a, b *activity.Activity) float64 {
	score := s.cfg.LocationWeight*locationTerm(a, b) +
		s.cfg.CategoryWeight*categoryTerm(a, b) +
		s.cfg.TemporalWeight*s.temporalTerm(a, b) +
		s.cfg.LexicalWeight*s.lexical(a, b)

	return math.Max(0, math.Min(score, 1))
}

func (s *scorer) lexical(a, b *activity.Activity) float64 {
	return jaccard(s.keywordsOf(a), s.keywordsOf(b))
}

func (s *scorer) temporalTerm(a, b *activity.Activity) float64 {
	return math.Max(0, 1-minutesBetween(a, b)/s.cfg.TimeWindowMinutes)
}

func (s *scorer) withinWindow(a, b *activity.Activity) bool {
	return minutesBetween(a, b) <= s.cfg.TimeWindowMinutes
}

func locationTerm(a, b *activity.Activity) float64 {
	if a.Location.Equal(b.Location) {
		return 1
	}

	return 0
}

func categoryTerm(a, b *activity.Activity) float64 {
	if a.Category == b.Category {
		return 1
	}

	return 0
}

func minutesBetween(a, b *activity.Activity) float64 {
	return math.Abs(a.Timestamp.Sub(b.Timestamp).Minutes())
}
