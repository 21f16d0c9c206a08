// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/planning"
)

const roadColumns = "id, project_id, from_location_id, to_location_id, distance, type, created_at"

// RoadRepository implements planning.RoadRepository using PostgreSQL.
type RoadRepository struct {
	pool querier
}

// NewRoadRepository creates a new RoadRepository.
func NewRoadRepository(pool querier) *RoadRepository {
	return &RoadRepository{pool: pool}
}

// Create persists a new road. An endpoint deleted since validation
// surfaces as a validation error.
func (r *RoadRepository) Create(ctx context.Context, road *planning.Road) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO roads (`+roadColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, road.ID.String(), road.ProjectID.String(), road.FromLocationID.String(), road.ToLocationID.String(),
		road.Distance, road.Type, road.CreatedAt)
	if isForeignKeyViolation(err) {
		return oops.Code(planning.CodeValidation).
			With("field", "location").
			With("id", road.ID.String()).
			Wrap(&planning.ValidationError{Field: "location", Message: "road endpoint no longer exists"})
	}
	if err != nil {
		return oops.With("operation", "create road").With("id", road.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a road of a project.
func (r *RoadRepository) Get(ctx context.Context, projectID, id ulid.ULID) (*planning.Road, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+roadColumns+`
		FROM roads WHERE project_id = $1 AND id = $2
	`, projectID.String(), id.String())
	road, err := scanRoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(planning.CodeRoadNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get road").With("id", id.String()).Wrap(err)
	}
	return road, nil
}

// ListByProject returns the project's roads, oldest first.
func (r *RoadRepository) ListByProject(ctx context.Context, projectID ulid.ULID) ([]*planning.Road, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+roadColumns+`
		FROM roads WHERE project_id = $1 ORDER BY created_at, id
	`, projectID.String())
	if err != nil {
		return nil, oops.With("operation", "list roads").With("project_id", projectID.String()).Wrap(err)
	}
	return collect(rows, scanRoad)
}

// Update changes distance and type. Endpoints are immutable.
func (r *RoadRepository) Update(ctx context.Context, road *planning.Road) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE roads SET distance = $3, type = $4
		WHERE project_id = $1 AND id = $2
	`, road.ProjectID.String(), road.ID.String(), road.Distance, road.Type)
	if err != nil {
		return oops.With("operation", "update road").With("id", road.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeRoadNotFound).With("id", road.ID.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

// Delete removes a road.
func (r *RoadRepository) Delete(ctx context.Context, projectID, id ulid.ULID) error {
	result, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM roads WHERE project_id = $1 AND id = $2`, projectID.String(), id.String())
	if err != nil {
		return oops.With("operation", "delete road").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeRoadNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

func scanRoad(row pgx.Row) (*planning.Road, error) {
	var (
		road                planning.Road
		idStr, projectIDStr string
		fromStr, toStr      string
	)
	err := row.Scan(&idStr, &projectIDStr, &fromStr, &toStr, &road.Distance, &road.Type, &road.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, oops.With("operation", "scan road").Wrap(err)
	}

	if road.ID, err = parseID(idStr, "id"); err != nil {
		return nil, err
	}
	if road.ProjectID, err = parseID(projectIDStr, "project_id"); err != nil {
		return nil, err
	}
	if road.FromLocationID, err = parseID(fromStr, "from_location_id"); err != nil {
		return nil, err
	}
	if road.ToLocationID, err = parseID(toStr, "to_location_id"); err != nil {
		return nil, err
	}
	return &road, nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

var _ planning.RoadRepository = (*RoadRepository)(nil)
