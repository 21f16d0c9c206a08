// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// ProjectRepository manages project persistence.
type ProjectRepository interface {
	// Create persists a new project.
	Create(ctx context.Context, project *Project) error

	// Get retrieves a project by ID regardless of owner.
	Get(ctx context.Context, id ulid.ULID) (*Project, error)

	// ListByOwner returns the owner's projects, newest first.
	ListByOwner(ctx context.Context, ownerID ulid.ULID) ([]*Project, error)

	// Update writes the mutable fields of an existing project.
	Update(ctx context.Context, project *Project) error

	// Delete removes a project together with its locations and roads.
	Delete(ctx context.Context, id ulid.ULID) error
}

// LocationRepository manages location persistence.
// Lookups are scoped to a project; a location of another project is not found.
type LocationRepository interface {
	Create(ctx context.Context, loc *Location) error
	Get(ctx context.Context, projectID, id ulid.ULID) (*Location, error)

	// ListByProject returns the project's locations, oldest first.
	ListByProject(ctx context.Context, projectID ulid.ULID) ([]*Location, error)

	Update(ctx context.Context, loc *Location) error

	// Delete removes a location and every road touching it.
	Delete(ctx context.Context, projectID, id ulid.ULID) error
}

// RoadRepository manages road persistence.
type RoadRepository interface {
	Create(ctx context.Context, road *Road) error
	Get(ctx context.Context, projectID, id ulid.ULID) (*Road, error)
	ListByProject(ctx context.Context, projectID ulid.ULID) ([]*Road, error)
	Update(ctx context.Context, road *Road) error
	Delete(ctx context.Context, projectID, id ulid.ULID) error
}

// Transactor runs fn in a single database transaction. Repository calls
// made with the context passed to fn join that transaction.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
