// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import "sort"

// sortByImportance orders clusters by highest priority, then size, then most recent
// end time. Equal clusters keep their relative order.
func sortByImportance(clusters []*Cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]

		if ar, br := a.HighestPriority.Rank(), b.HighestPriority.Rank(); ar != br {
			return ar > br
		}

		if a.Count != b.Count {
			return a.Count > b.Count
		}

		return a.TimeRange.End.After(b.TimeRange.End)
	})
}
