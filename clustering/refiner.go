// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

// minCoherence is the coherence a group must exceed to survive refinement.
const minCoherence = 0.5

// refine merges clusters that share members, explodes incoherent groups into
// singletons and re-scores what remains.
func refine(clusters []*Cluster, s *scorer) []*Cluster {
	merged := mergeOverlapping(clusters, s)

	out := make([]*Cluster, 0, len(merged))

	for _, c := range merged {
		if c.IsSingleton() {
			out = append(out, c)

			continue
		}

		if c.CoherenceScore <= minCoherence {
			for _, m := range c.Members {
				out = append(out, singleton(m, s.cfg.Strategy))
			}

			continue
		}

		c.Description = describe(c.Members)
		c.ConfidenceScore = confidence(c, true)
		out = append(out, c)
	}

	return out
}

// mergeOverlapping unions clusters that share at least one member ID and rebuilds
// each merged component. Untouched clusters are returned as they are.
func mergeOverlapping(clusters []*Cluster, s *scorer) []*Cluster {
	uf := newUnionFind(len(clusters))
	owner := make(map[string]int)

	for i, c := range clusters {
		for _, m := range c.Members {
			if j, ok := owner[m.ID]; ok {
				uf.union(i, j)
			} else {
				owner[m.ID] = i
			}
		}
	}

	components := make(map[int][]int)

	var roots []int

	for i := range clusters {
		r := uf.find(i)
		if _, ok := components[r]; !ok {
			roots = append(roots, r)
		}

		components[r] = append(components[r], i)
	}

	if len(roots) == len(clusters) {
		return clusters
	}

	out := make([]*Cluster, 0, len(roots))

	for _, r := range roots {
		idx := components[r]
		if len(idx) == 1 {
			out = append(out, clusters[idx[0]])

			continue
		}

		var members group

		seen := make(map[string]bool)

		for _, i := range idx {
			for _, m := range clusters[i].Members {
				if !seen[m.ID] {
					seen[m.ID] = true
					members = append(members, m)
				}
			}
		}

		out = append(out, build(members, s))
	}

	return out
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}

	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}

	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}

	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}
