// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

// Package spatial holds geographic helpers used to index and query activities.
package spatial

import (
	"fmt"
	"math"

	"github.com/uber/h3-go/v4"
)

const earthRadius = 6371e3 // meters

// IndexResolution is the h3 resolution activities are indexed at (roughly 0.1 km² cells).
const IndexResolution = 9

// averageEdgeMeters is the mean h3 hexagon edge length at IndexResolution.
const averageEdgeMeters = 200.8

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Validate reports whether the point lies within the valid coordinate ranges.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90 (got %f)", p.Lat)
	}

	if p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("longitude must be between -180 and 180 (got %f)", p.Lng)
	}

	return nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

// Cell returns the h3 cell containing p at IndexResolution.
func (p Point) Cell() (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), IndexResolution)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", IndexResolution, err)
	}

	return cell, nil
}

// CellsWithin returns a set of cells covering every point closer than radius meters
// to p. The set over-approximates the disc; callers filter with HaversineDistance.
func (p Point) CellsWithin(radius float64) ([]h3.Cell, error) {
	origin, err := p.Cell()
	if err != nil {
		return nil, err
	}

	// neighbouring cell centers are sqrt(3) edges apart
	k := int(math.Ceil(radius/(math.Sqrt(3)*averageEdgeMeters))) + 1

	cells, err := h3.GridDisk(origin, k)
	if err != nil {
		return nil, fmt.Errorf("computing h3 disk of %d rings: %w", k, err)
	}

	return cells, nil
}
