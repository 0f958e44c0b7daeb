// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/situ8/situ/activity"
	"github.com/situ8/situ/clustering"
	"github.com/situ8/situ/spatial"
)

const defaultRadiusMeters = 300

// parseFilter reads since, until, building, zone, category, lat, lng, radius and
// limit. The limit is capped at maxLimit.
func parseFilter(ctx *gin.Context, maxLimit int) (activity.Filter, error) {
	var (
		f   activity.Filter
		err error
	)

	if f.Since, err = parseTime(ctx.Query("since")); err != nil {
		return f, fmt.Errorf("invalid since: %w", err)
	}

	if f.Until, err = parseTime(ctx.Query("until")); err != nil {
		return f, fmt.Errorf("invalid until: %w", err)
	}

	f.Building = ctx.Query("building")
	f.Zone = ctx.Query("zone")

	for _, raw := range ctx.QueryArray("category") {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Categories = append(f.Categories, activity.ParseCategory(c))
			}
		}
	}

	lat, hasLat := ctx.GetQuery("lat")
	lng, hasLng := ctx.GetQuery("lng")

	if hasLat != hasLng {
		return f, errors.New("lat and lng must be given together")
	}

	if hasLat {
		p := &spatial.Point{}

		if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
			return f, fmt.Errorf("invalid lat: %w", err)
		}

		if p.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
			return f, fmt.Errorf("invalid lng: %w", err)
		}

		if err := p.Validate(); err != nil {
			return f, err
		}

		f.Near = p
		f.RadiusMeters = defaultRadiusMeters

		if raw := ctx.Query("radius"); raw != "" {
			if f.RadiusMeters, err = strconv.ParseFloat(raw, 64); err != nil || f.RadiusMeters <= 0 {
				return f, fmt.Errorf("invalid radius %q", raw)
			}
		}
	}

	f.Limit = maxLimit

	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return f, fmt.Errorf("invalid limit %q", raw)
		}

		f.Limit = min(n, maxLimit)
	}

	return f, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	return time.Parse(time.DateOnly, s)
}

// parseOverrides reads strategy, window, min, max_clusters and smart.
func parseOverrides(ctx *gin.Context) (*clustering.Overrides, error) {
	o := &clustering.Overrides{}

	if raw := ctx.Query("strategy"); raw != "" {
		s, err := clustering.ParseStrategy(raw)
		if err != nil {
			return nil, err
		}

		o.Strategy = &s
	}

	if raw := ctx.Query("window"); raw != "" {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid window %q", raw)
		}

		o.TimeWindowMinutes = &w
	}

	if raw := ctx.Query("min"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid min %q", raw)
		}

		o.MinActivitiesForCluster = &n
	}

	if raw := ctx.Query("max_clusters"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid max_clusters %q", raw)
		}

		o.MaxClusters = &n
	}

	if raw := ctx.Query("smart"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid smart %q", raw)
		}

		o.EnableSmartClustering = &b
	}

	return o, nil
}
