// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// ModelType selects the kind of site a project plans.
type ModelType string

// Model types.
const (
	ModelTypePlanning  ModelType = "planning"
	ModelTypeCorporate ModelType = "corporate"
)

// IsValid reports whether m is a known model type.
func (m ModelType) IsValid() bool {
	switch m {
	case ModelTypePlanning, ModelTypeCorporate:
		return true
	}
	return false
}

// Defaults applied when a field is left empty.
const (
	DefaultLocationColor = "#60a5fa"
	DefaultRoadType      = "primary"
)

// Project is a planning workspace owned by one user.
type Project struct {
	ID          ulid.ULID
	OwnerID     ulid.ULID
	Name        string
	Description string
	ModelType   ModelType
	Sectors     []string
	Theme       *string
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

// ProjectPatch holds the mutable project fields. Nil means unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
	Sectors     *[]string
	Theme       *string
}

// Position is a point in the scene. Y is up.
type Position struct {
	X, Y, Z float64
}

// Location is a building or site placed inside a project.
type Location struct {
	ID          ulid.ULID
	ProjectID   ulid.ULID
	Name        string
	Type        string
	Position    Position
	Description *string
	Color       string
	Zone        *string
	CreatedAt   time.Time
}

// LocationPatch holds the mutable location fields. Nil means unchanged.
type LocationPatch struct {
	Name        *string
	Type        *string
	Position    *Position
	Description *string
	Color       *string
	Zone        *string
}

// Road connects two distinct locations of the same project.
type Road struct {
	ID             ulid.ULID
	ProjectID      ulid.ULID
	FromLocationID ulid.ULID
	ToLocationID   ulid.ULID
	Distance       float64
	Type           string
	CreatedAt      time.Time
}

// RoadPatch holds the fields a road update may change. Endpoints are fixed.
type RoadPatch struct {
	Distance *float64
	Type     *string
}
