// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import (
	"time"

	"github.com/situ8/situ/activity"
)

var (
	baseTime = time.Date(2025, 8, 21, 10, 0, 0, 0, time.UTC)

	lobbyA = activity.Location{Location: "Lobby", Building: "A"}
	dockB  = activity.Location{Location: "Loading Dock", Building: "B"}
	gateC  = activity.Location{Location: "North Gate", Building: "C", Zone: "Perimeter"}
)

func act(id string, category activity.Category, loc activity.Location, minute int, title string) *activity.Activity {
	return &activity.Activity{
		ID:        id,
		Category:  category,
		Title:     title,
		Priority:  activity.PriorityMedium,
		Location:  loc,
		Timestamp: baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func withPriority(a *activity.Activity, p activity.Priority) *activity.Activity {
	a.Priority = p

	return a
}

func ids(activities []*activity.Activity) []string {
	out := make([]string, len(activities))
	for i, a := range activities {
		out[i] = a.ID
	}

	return out
}

func groupIDs(groups []group) [][]string {
	out := make([][]string, len(groups))
	for i, g := range groups {
		out[i] = ids(g)
	}

	return out
}

func testScorer(mutate func(*Config)) *scorer {
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	cfg, _ = cfg.sanitized()

	return newScorer(cfg)
}
