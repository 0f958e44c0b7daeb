// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package activity defines the security activity records that are stored, ingested
// and clustered.
package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/situ8/situ/spatial"
)

// Category is the closed set of activity kinds.
type Category string

const (
	CategoryMedical            Category = "medical"
	CategorySecurityBreach     Category = "security-breach"
	CategoryTailgating         Category = "tailgating"
	CategorySuspiciousBehavior Category = "suspicious-behavior"
	CategoryUnauthorizedAccess Category = "unauthorized-access"
	CategoryPatrol             Category = "patrol"
	CategoryAlert              Category = "alert"
	CategoryMaintenance        Category = "maintenance"
	CategoryOther              Category = "other"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryMedical,
	CategorySecurityBreach,
	CategoryTailgating,
	CategorySuspiciousBehavior,
	CategoryUnauthorizedAccess,
	CategoryPatrol,
	CategoryAlert,
	CategoryMaintenance,
	CategoryOther,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

// ParseCategory maps free text ("Security Breach", "security_breach") onto a
// Category. Unknown values map to CategoryOther.
func ParseCategory(s string) Category {
	normalized := strings.NewReplacer("_", "-", " ", "-").Replace(strings.ToLower(strings.TrimSpace(s)))
	if c := Category(normalized); c.Valid() {
		return c
	}

	return CategoryOther
}

// Priority is the ordered urgency of an activity.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank returns the strict ordering critical=4 > high=3 > medium=2 > low=1; unknown
// priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// ParsePriority parses a priority name, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}

	return p, nil
}

// Location is where an activity happened. Only Location is required.
type Location struct {
	Location string `json:"location"`
	Building string `json:"building,omitempty"`
	Zone     string `json:"zone,omitempty"`
}

// Equal reports whether all three descriptors match exactly.
func (l Location) Equal(o Location) bool {
	return l.Location == o.Location && l.Building == o.Building && l.Zone == o.Zone
}

// String renders the non-empty parts as "building / zone / location", skipping
// repeated parts.
func (l Location) String() string {
	parts := make([]string, 0, 3)

	for _, p := range []string{l.Building, l.Zone, l.Location} {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if len(parts) > 0 && strings.EqualFold(parts[len(parts)-1], p) {
			continue
		}

		parts = append(parts, p)
	}

	return strings.Join(parts, " / ")
}

// Activity is a single security event considered for clustering. Records are
// treated as immutable once constructed.
type Activity struct {
	ID          string         `json:"id"`
	Category    Category       `json:"category"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    Priority       `json:"priority"`
	Location    Location       `json:"location"`
	Timestamp   time.Time      `json:"timestamp"`
	Confidence  *float64       `json:"confidence,omitempty"`
	Point       *spatial.Point `json:"point,omitempty"`
	Source      string         `json:"source,omitempty"`
}

// UnmarshalJSON accepts the location either as an object or as a bare string, and
// lower-cases category and priority.
func (a *Activity) UnmarshalJSON(data []byte) error {
	type plain Activity

	var raw struct {
		plain
		Location json.RawMessage `json:"location"`
		Building string          `json:"building"`
		Zone     string          `json:"zone"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*a = Activity(raw.plain)
	a.Category = ParseCategory(string(a.Category))
	a.Priority = Priority(strings.ToLower(string(a.Priority)))

	if len(raw.Location) > 0 && raw.Location[0] == '"' {
		if err := json.Unmarshal(raw.Location, &a.Location.Location); err != nil {
			return fmt.Errorf("decoding location: %w", err)
		}
	} else if len(raw.Location) > 0 && string(raw.Location) != "null" {
		if err := json.Unmarshal(raw.Location, &a.Location); err != nil {
			return fmt.Errorf("decoding location: %w", err)
		}
	}

	if a.Location.Building == "" {
		a.Location.Building = raw.Building
	}

	if a.Location.Zone == "" {
		a.Location.Zone = raw.Zone
	}

	return nil
}
