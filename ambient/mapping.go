// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package ambient

import (
	"fmt"
	"strings"
	"time"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/utils/htmlutils"
	"github.com/situ8/situ/utils/textutils"
)

// Source tags activities created from Ambient alerts.
const Source = "AMBIENT"

var categoryByType = map[string]activity.Category{
	"tailgate":  activity.CategoryTailgating,
	"slip_fall": activity.CategoryMedical,
	"loitering": activity.CategorySuspiciousBehavior,
	"violence":  activity.CategorySecurityBreach,
	"weapon":    activity.CategorySecurityBreach,
	"intrusion": activity.CategoryUnauthorizedAccess,
}

// CategoryFor maps an Ambient alert type onto an activity category; unknown types
// become generic alerts.
func CategoryFor(alertType string) activity.Category {
	if c, ok := categoryByType[strings.ToLower(strings.TrimSpace(alertType))]; ok {
		return c
	}

	return activity.CategoryAlert
}

// ToActivity converts a validated payload.
func ToActivity(p *Payload) (*activity.Activity, error) {
	ts, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", p.Timestamp, err)
	}

	alertType := htmlutils.PlainText(p.Type)
	location := htmlutils.PlainText(p.Location)

	a := &activity.Activity{
		ID:          "ambient_" + p.AlertID,
		Category:    CategoryFor(alertType),
		Title:       fmt.Sprintf("%s - %s", textutils.Humanize(alertType), location),
		Description: fmt.Sprintf("Ambient.AI detected %s at %s", alertType, location),
		Priority:    activity.Priority(p.Severity),
		Location: activity.Location{
			Location: location,
			Building: htmlutils.PlainText(p.Metadata.Building),
			Zone:     htmlutils.PlainText(p.Metadata.Zone),
		},
		Timestamp: ts.UTC(),
		Source:    Source,
	}

	if p.Confidence != nil {
		c := *p.Confidence
		a.Confidence = &c
	}

	return a, nil
}
