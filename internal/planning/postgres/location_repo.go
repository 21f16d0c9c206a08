// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/planning"
)

const locationColumns = "id, project_id, name, type, pos_x, pos_y, pos_z, description, color, zone, created_at"

// LocationRepository implements planning.LocationRepository using PostgreSQL.
type LocationRepository struct {
	pool querier
}

// NewLocationRepository creates a new LocationRepository.
func NewLocationRepository(pool querier) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// Create persists a new location.
// Callers must validate the location before calling this method.
func (r *LocationRepository) Create(ctx context.Context, loc *planning.Location) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO locations (`+locationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, loc.ID.String(), loc.ProjectID.String(), loc.Name, loc.Type,
		loc.Position.X, loc.Position.Y, loc.Position.Z,
		loc.Description, loc.Color, loc.Zone, loc.CreatedAt)
	if err != nil {
		return oops.With("operation", "create location").With("id", loc.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a location of a project.
func (r *LocationRepository) Get(ctx context.Context, projectID, id ulid.ULID) (*planning.Location, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+locationColumns+`
		FROM locations WHERE project_id = $1 AND id = $2
	`, projectID.String(), id.String())
	loc, err := scanLocation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(planning.CodeLocationNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get location").With("id", id.String()).Wrap(err)
	}
	return loc, nil
}

// ListByProject returns the project's locations, oldest first.
func (r *LocationRepository) ListByProject(ctx context.Context, projectID ulid.ULID) ([]*planning.Location, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+locationColumns+`
		FROM locations WHERE project_id = $1 ORDER BY created_at, id
	`, projectID.String())
	if err != nil {
		return nil, oops.With("operation", "list locations").With("project_id", projectID.String()).Wrap(err)
	}
	return collect(rows, scanLocation)
}

// Update modifies an existing location.
func (r *LocationRepository) Update(ctx context.Context, loc *planning.Location) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE locations SET name = $3, type = $4, pos_x = $5, pos_y = $6, pos_z = $7,
		description = $8, color = $9, zone = $10
		WHERE project_id = $1 AND id = $2
	`, loc.ProjectID.String(), loc.ID.String(), loc.Name, loc.Type,
		loc.Position.X, loc.Position.Y, loc.Position.Z,
		loc.Description, loc.Color, loc.Zone)
	if err != nil {
		return oops.With("operation", "update location").With("id", loc.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeLocationNotFound).With("id", loc.ID.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

// Delete removes a location. Roads touching it go with it by cascade.
func (r *LocationRepository) Delete(ctx context.Context, projectID, id ulid.ULID) error {
	result, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM locations WHERE project_id = $1 AND id = $2`, projectID.String(), id.String())
	if err != nil {
		return oops.With("operation", "delete location").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeLocationNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

func scanLocation(row pgx.Row) (*planning.Location, error) {
	var (
		loc                 planning.Location
		idStr, projectIDStr string
	)
	err := row.Scan(&idStr, &projectIDStr, &loc.Name, &loc.Type,
		&loc.Position.X, &loc.Position.Y, &loc.Position.Z,
		&loc.Description, &loc.Color, &loc.Zone, &loc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, oops.With("operation", "scan location").Wrap(err)
	}

	if loc.ID, err = parseID(idStr, "id"); err != nil {
		return nil, err
	}
	if loc.ProjectID, err = parseID(projectIDStr, "project_id"); err != nil {
		return nil, err
	}
	return &loc, nil
}

var _ planning.LocationRepository = (*LocationRepository)(nil)
