// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/situ8/situ/spatial"
)

// Filter narrows down List queries. Zero values disable each condition.
type Filter struct {
	Since      time.Time
	Until      time.Time
	Building   string
	Zone       string
	Categories []Category
	// Near restricts results to activities with a point within RadiusMeters of it.
	Near         *spatial.Point
	RadiusMeters float64
	Limit        int
}

// Repository handles persistence of activities.
type Repository interface {
	// CreateSchema creates the activities table
	CreateSchema(ctx context.Context) error

	// Save inserts or replaces a single activity
	Save(ctx context.Context, a *Activity) error

	// BulkInsert inserts a slice of activities in one transaction
	BulkInsert(ctx context.Context, activities []*Activity) error

	// List returns activities ordered by timestamp
	List(ctx context.Context, f Filter) ([]*Activity, error)

	// Count returns the total number of activities
	Count(ctx context.Context) (int, error)

	// DB returns the underlying database connection
	DB() *sql.DB
}

type sqlActivityRepository struct {
	db *sql.DB
}

// NewRepository creates a new activity repository on top of a DuckDB connection.
func NewRepository(db *sql.DB) Repository {
	return &sqlActivityRepository{db: db}
}

// DB returns the underlying database connection for advanced queries.
func (r *sqlActivityRepository) DB() *sql.DB {
	return r.db
}

func (r *sqlActivityRepository) CreateSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS activities (
			id VARCHAR PRIMARY KEY,
			category VARCHAR NOT NULL,
			title VARCHAR NOT NULL,
			description VARCHAR,
			priority VARCHAR NOT NULL,
			location VARCHAR NOT NULL,
			building VARCHAR,
			zone VARCHAR,
			ts TIMESTAMP NOT NULL,
			confidence DOUBLE,
			lat DOUBLE,
			lng DOUBLE,
			h3_cell BIGINT,
			source VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS activities_ts_idx ON activities(ts);
	`)
	if err != nil {
		return fmt.Errorf("creating activities schema: %w", err)
	}

	return nil
}

const upsertActivity = `
	INSERT OR REPLACE INTO activities(
		id, category, title, description, priority,
		location, building, zone, ts, confidence,
		lat, lng, h3_cell, source
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// row converts an activity into the column values of upsertActivity.
func row(a *Activity) ([]any, error) {
	c := *a
	sanitize(&c)

	var lat, lng, cell any

	if c.Point != nil {
		h3Cell, err := c.Point.Cell()
		if err != nil {
			return nil, err
		}

		lat, lng, cell = c.Point.Lat, c.Point.Lng, int64(h3Cell)
	}

	var confidence any
	if c.Confidence != nil {
		confidence = *c.Confidence
	}

	return []any{
		c.ID,
		string(c.Category),
		c.Title,
		nullable(c.Description),
		string(c.Priority),
		c.Location.Location,
		nullable(c.Location.Building),
		nullable(c.Location.Zone),
		c.Timestamp.UTC(),
		confidence,
		lat,
		lng,
		cell,
		nullable(c.Source),
	}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func (r *sqlActivityRepository) Save(ctx context.Context, a *Activity) error {
	if err := Validate(a); err != nil {
		return err
	}

	args, err := row(a)
	if err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, upsertActivity, args...); err != nil {
		return fmt.Errorf("saving activity %s: %w", a.ID, err)
	}

	return nil
}

func (r *sqlActivityRepository) BulkInsert(ctx context.Context, activities []*Activity) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rErr := tx.Rollback(); rErr != nil {
				err = fmt.Errorf("%w (rollback: %v)", err, rErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertActivity)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range activities {
		if err = Validate(a); err != nil {
			return err
		}

		var args []any

		if args, err = row(a); err != nil {
			return err
		}

		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting activity %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

var baseSelect = `
	SELECT id, category, title, description, priority,
	       location, building, zone, ts, confidence,
	       lat, lng, source
	FROM activities
`

func (r *sqlActivityRepository) List(ctx context.Context, f Filter) ([]*Activity, error) {
	var (
		conditions []string
		args       []any
	)

	if !f.Since.IsZero() {
		conditions = append(conditions, "ts >= ?")
		args = append(args, f.Since.UTC())
	}

	if !f.Until.IsZero() {
		conditions = append(conditions, "ts < ?")
		args = append(args, f.Until.UTC())
	}

	if f.Building != "" {
		conditions = append(conditions, "building = ?")
		args = append(args, f.Building)
	}

	if f.Zone != "" {
		conditions = append(conditions, "zone = ?")
		args = append(args, f.Zone)
	}

	if len(f.Categories) > 0 {
		conditions = append(conditions, "category IN ("+placeholders(len(f.Categories))+")")
		for _, c := range f.Categories {
			args = append(args, string(c))
		}
	}

	if f.Near != nil {
		cells, err := f.Near.CellsWithin(f.RadiusMeters)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, "h3_cell IN ("+placeholders(len(cells))+")")
		for _, c := range cells {
			args = append(args, int64(c))
		}
	}

	query := baseSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY ts, id"

	activities, err := r.list(ctx, query, args)
	if err != nil {
		return nil, err
	}

	if f.Near != nil {
		within := activities[:0]

		for _, a := range activities {
			if a.Point != nil && f.Near.HaversineDistance(a.Point) <= f.RadiusMeters {
				within = append(within, a)
			}
		}

		activities = within
	}

	if f.Limit > 0 && len(activities) > f.Limit {
		activities = activities[:f.Limit]
	}

	return activities, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (r *sqlActivityRepository) list(ctx context.Context, query string, args []any) ([]*Activity, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	var activities []*Activity

	for rows.Next() {
		var (
			a                                   Activity
			category, priority                  string
			description, building, zone, source sql.NullString
			confidence, lat, lng                sql.NullFloat64
		)

		err := rows.Scan(
			&a.ID, &category, &a.Title, &description, &priority,
			&a.Location.Location, &building, &zone, &a.Timestamp, &confidence,
			&lat, &lng, &source,
		)
		if err != nil {
			return nil, err
		}

		a.Category = Category(category)
		a.Priority = Priority(priority)
		a.Description = description.String
		a.Location.Building = building.String
		a.Location.Zone = zone.String
		a.Source = source.String
		a.Timestamp = a.Timestamp.UTC()

		if confidence.Valid {
			v := confidence.Float64
			a.Confidence = &v
		}

		if lat.Valid && lng.Valid {
			a.Point = &spatial.Point{Lat: lat.Float64, Lng: lng.Float64}
		}

		activities = append(activities, &a)
	}

	return activities, rows.Err()
}

func (r *sqlActivityRepository) Count(ctx context.Context) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM activities").Scan(&count)

	return count, err
}
