// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"encoding/json"

	"github.com/situ8/situ/activity"
)

// EntryKind tags an Entry in its JSON form.
type EntryKind string

const (
	EntryActivity EntryKind = "activity"
	EntryCluster  EntryKind = "cluster"
)

// Entry is one line of a rendered clustering result: either a bare activity or a
// cluster of several.
type Entry interface {
	Kind() EntryKind
	isEntry()
}

// ActivityEntry is an activity that did not group with anything.
type ActivityEntry struct {
	Activity *activity.Activity
}

// ClusterEntry is a group of two or more activities.
type ClusterEntry struct {
	Cluster *Cluster
}

func (ActivityEntry) Kind() EntryKind { return EntryActivity }
func (ClusterEntry) Kind() EntryKind  { return EntryCluster }
func (ActivityEntry) isEntry()        {}
func (ClusterEntry) isEntry()         {}

func (e ActivityEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind     EntryKind          `json:"kind"`
		Activity *activity.Activity `json:"activity"`
	}{EntryActivity, e.Activity})
}

func (e ClusterEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Kind    EntryKind `json:"kind"`
		Cluster *Cluster  `json:"cluster"`
	}{EntryCluster, e.Cluster})
}

// Entries returns the clusters in render order, unwrapping singletons.
func (r *Result) Entries() []Entry {
	out := make([]Entry, len(r.Clusters))

	for i, c := range r.Clusters {
		if c.IsSingleton() {
			out[i] = ActivityEntry{Activity: c.Representative}
		} else {
			out[i] = ClusterEntry{Cluster: c}
		}
	}

	return out
}
