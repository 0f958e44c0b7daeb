// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"strings"
	"unicode/utf8"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/utils/textutils"
)

// minKeywordLength excludes short tokens such as articles and prepositions.
const minKeywordLength = 3

// Keywords returns the distinct folded tokens of the activity title and description
// that are longer than three characters, in first-occurrence order.
func Keywords(a *activity.Activity) []string {
	text := textutils.LowerASCIIFolding(a.Title + " " + a.Description)

	seen := make(map[string]struct{})

	var out []string

	for _, tok := range strings.Fields(text) {
		if utf8.RuneCountInString(tok) <= minKeywordLength {
			continue
		}

		if _, ok := seen[tok]; ok {
			continue
		}

		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	return out
}

type keywordSet map[string]struct{}

func newKeywordSet(a *activity.Activity) keywordSet {
	words := Keywords(a)
	set := make(keywordSet, len(words))

	for _, w := range words {
		set[w] = struct{}{}
	}

	return set
}

// jaccard is |a ∩ b| / |a ∪ b|, zero when both are empty.
func jaccard(a, b keywordSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	if len(a) > len(b) {
		a, b = b, a
	}

	shared := 0

	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(a)+len(b)-shared)
}
