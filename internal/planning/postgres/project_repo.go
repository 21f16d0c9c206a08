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

const projectColumns = "id, owner_id, name, description, model_type, sectors, theme, created_at, updated_at"

// ProjectRepository implements planning.ProjectRepository using PostgreSQL.
type ProjectRepository struct {
	pool querier
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(pool querier) *ProjectRepository {
	return &ProjectRepository{pool: pool}
}

// Create persists a new project.
// Callers must validate the project before calling this method.
func (r *ProjectRepository) Create(ctx context.Context, p *planning.Project) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID.String(), p.OwnerID.String(), p.Name, p.Description, string(p.ModelType),
		p.Sectors, p.Theme, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return oops.With("operation", "create project").With("id", p.ID.String()).Wrap(err)
	}
	return nil
}

// Get retrieves a project by ID.
func (r *ProjectRepository) Get(ctx context.Context, id ulid.ULID) (*planning.Project, error) {
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+projectColumns+`
		FROM projects WHERE id = $1
	`, id.String())
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(planning.CodeProjectNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get project").With("id", id.String()).Wrap(err)
	}
	return p, nil
}

// ListByOwner returns the owner's projects, newest first.
func (r *ProjectRepository) ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*planning.Project, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+projectColumns+`
		FROM projects WHERE owner_id = $1 ORDER BY created_at DESC, id DESC
	`, ownerID.String())
	if err != nil {
		return nil, oops.With("operation", "list projects").With("owner_id", ownerID.String()).Wrap(err)
	}
	return collect(rows, scanProject)
}

// Update writes the mutable fields of a project.
func (r *ProjectRepository) Update(ctx context.Context, p *planning.Project) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE projects SET name = $2, description = $3, sectors = $4, theme = $5, updated_at = $6
		WHERE id = $1
	`, p.ID.String(), p.Name, p.Description, p.Sectors, p.Theme, p.UpdatedAt)
	if err != nil {
		return oops.With("operation", "update project").With("id", p.ID.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeProjectNotFound).With("id", p.ID.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

// Delete removes a project. Locations and roads go with it by cascade.
func (r *ProjectRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete project").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(planning.CodeProjectNotFound).With("id", id.String()).Wrap(planning.ErrNotFound)
	}
	return nil
}

func scanProject(row pgx.Row) (*planning.Project, error) {
	var (
		p               planning.Project
		idStr, ownerStr string
		modelType       string
	)
	err := row.Scan(&idStr, &ownerStr, &p.Name, &p.Description, &modelType,
		&p.Sectors, &p.Theme, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, oops.With("operation", "scan project").Wrap(err)
	}

	if p.ID, err = parseID(idStr, "id"); err != nil {
		return nil, err
	}
	if p.OwnerID, err = parseID(ownerStr, "owner_id"); err != nil {
		return nil, err
	}
	p.ModelType = planning.ModelType(modelType)
	if p.Sectors == nil {
		p.Sectors = []string{}
	}
	return &p, nil
}

var _ planning.ProjectRepository = (*ProjectRepository)(nil)
