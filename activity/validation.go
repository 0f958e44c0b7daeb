// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"fmt"
	"strings"
)

const (
	maxLocationLength    = 500
	maxTitleLength       = 500
	maxDescriptionLength = 4000
)

// Validate checks that an activity is well formed before it is stored. The
// clustering engine never calls it: it accepts whatever it is given.
func Validate(a *Activity) error {
	if a == nil {
		return &InvalidError{Problems: []string{"activity can't be nil"}}
	}

	var problems []string

	if strings.TrimSpace(a.ID) == "" {
		problems = append(problems, "id is empty")
	}

	if strings.TrimSpace(a.Title) == "" {
		problems = append(problems, "title is empty")
	} else if len(a.Title) > maxTitleLength {
		problems = append(problems, fmt.Sprintf("title too long (max %d characters)", maxTitleLength))
	}

	if len(a.Description) > maxDescriptionLength {
		problems = append(problems, fmt.Sprintf("description too long (max %d characters)", maxDescriptionLength))
	}

	if !a.Category.Valid() {
		problems = append(problems, fmt.Sprintf("unknown category %q", a.Category))
	}

	if !a.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("unknown priority %q", a.Priority))
	}

	if strings.TrimSpace(a.Location.Location) == "" {
		problems = append(problems, "location is empty")
	} else if len(a.Location.Location) > maxLocationLength {
		problems = append(problems, fmt.Sprintf("location too long (max %d characters)", maxLocationLength))
	}

	if a.Timestamp.IsZero() {
		problems = append(problems, "timestamp is missing")
	}

	if a.Confidence != nil && (*a.Confidence < 0 || *a.Confidence > 1) {
		problems = append(problems, fmt.Sprintf("confidence must be between 0.0 and 1.0 (got %f)", *a.Confidence))
	}

	if a.Point != nil {
		if err := a.Point.Validate(); err != nil {
			problems = append(problems, "invalid point: "+err.Error())
		}
	}

	if len(problems) == 0 {
		return nil
	}

	return &InvalidError{ID: a.ID, Problems: problems}
}

// sanitize trims free-text fields and caps the location length.
func sanitize(a *Activity) {
	a.ID = strings.TrimSpace(a.ID)
	a.Title = strings.TrimSpace(a.Title)
	a.Description = strings.TrimSpace(a.Description)
	a.Location.Location = strings.TrimSpace(a.Location.Location)
	a.Location.Building = strings.TrimSpace(a.Location.Building)
	a.Location.Zone = strings.TrimSpace(a.Location.Zone)

	if len(a.Location.Location) > maxLocationLength {
		a.Location.Location = a.Location.Location[:maxLocationLength]
	}
}
