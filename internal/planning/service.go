// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Projects   ProjectRepository
	Locations  LocationRepository
	Roads      RoadRepository
	Transactor Transactor
	Templates  *Catalog
	Logger     *slog.Logger
	Clock      func() time.Time
}

// Service provides owner-scoped access to projects, locations and roads.
type Service struct {
	projects   ProjectRepository
	locations  LocationRepository
	roads      RoadRepository
	transactor Transactor
	templates  *Catalog
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new Service. Logger and Clock are optional.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Projects == nil:
		return nil, oops.Code(CodeConfigInvalid).Errorf("project repository is required")
	case cfg.Locations == nil:
		return nil, oops.Code(CodeConfigInvalid).Errorf("location repository is required")
	case cfg.Roads == nil:
		return nil, oops.Code(CodeConfigInvalid).Errorf("road repository is required")
	case cfg.Transactor == nil:
		return nil, oops.Code(CodeConfigInvalid).Errorf("transactor is required")
	case cfg.Templates == nil:
		return nil, oops.Code(CodeConfigInvalid).Errorf("template catalog is required")
	}

	s := &Service{
		projects:   cfg.Projects,
		locations:  cfg.Locations,
		roads:      cfg.Roads,
		transactor: cfg.Transactor,
		templates:  cfg.Templates,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Templates returns the catalog used to seed new projects.
func (s *Service) Templates() *Catalog {
	return s.templates
}

// CreateProject validates p, stores it for ownerID and seeds it from the
// template of its model type. Project and seed data commit together.
func (s *Service) CreateProject(ctx context.Context, ownerID ulid.ULID, p *Project) error {
	if p.ModelType == "" {
		p.ModelType = ModelTypePlanning
	}
	if p.Sectors == nil {
		p.Sectors = []string{}
	}
	if err := ValidateProject(p); err != nil {
		return invalid(err)
	}

	tmpl, err := s.templates.ForModelType(p.ModelType)
	if err != nil {
		return err
	}

	p.ID = ulid.Make()
	p.OwnerID = ownerID
	p.CreatedAt = s.now().UTC()
	p.UpdatedAt = nil

	locs, roads := tmpl.Seed(p.ID, p.Sectors, p.CreatedAt)

	err = s.transactor.InTransaction(ctx, func(ctx context.Context) error {
		if err := s.projects.Create(ctx, p); err != nil {
			return oops.With("operation", "insert project").Wrap(err)
		}
		for _, loc := range locs {
			if err := s.locations.Create(ctx, loc); err != nil {
				return oops.With("operation", "seed location").With("name", loc.Name).Wrap(err)
			}
		}
		for _, road := range roads {
			if err := s.roads.Create(ctx, road); err != nil {
				return oops.With("operation", "seed road").Wrap(err)
			}
		}
		return nil
	})
	if err != nil {
		return oops.Wrapf(err, "create project %s", p.ID)
	}

	s.logger.InfoContext(ctx, "project created",
		"project_id", p.ID.String(),
		"owner_id", ownerID.String(),
		"template", tmpl.Name,
		"locations", len(locs),
		"roads", len(roads))
	return nil
}

// ListProjects returns the owner's projects, newest first.
func (s *Service) ListProjects(ctx context.Context, ownerID ulid.ULID) ([]*Project, error) {
	projects, err := s.projects.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, oops.Wrapf(err, "list projects of %s", ownerID)
	}
	return projects, nil
}

// GetProject returns a project owned by ownerID.
func (s *Service) GetProject(ctx context.Context, ownerID, id ulid.ULID) (*Project, error) {
	return s.ownedProject(ctx, ownerID, id)
}

// UpdateProject applies patch to a project owned by ownerID.
func (s *Service) UpdateProject(ctx context.Context, ownerID, id ulid.ULID, patch ProjectPatch) (*Project, error) {
	p, err := s.ownedProject(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Sectors != nil {
		p.Sectors = *patch.Sectors
	}
	if patch.Theme != nil {
		p.Theme = patch.Theme
	}
	if err := ValidateProject(p); err != nil {
		return nil, invalid(err)
	}

	now := s.now().UTC()
	p.UpdatedAt = &now
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, oops.Wrapf(err, "update project %s", id)
	}
	return p, nil
}

// DeleteProject removes a project owned by ownerID with everything in it.
func (s *Service) DeleteProject(ctx context.Context, ownerID, id ulid.ULID) error {
	if _, err := s.ownedProject(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return oops.Wrapf(err, "delete project %s", id)
	}
	s.logger.InfoContext(ctx, "project deleted", "project_id", id.String(), "owner_id", ownerID.String())
	return nil
}

// CreateLocation adds loc to a project owned by ownerID.
func (s *Service) CreateLocation(ctx context.Context, ownerID, projectID ulid.ULID, loc *Location) error {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return err
	}
	if loc.Color == "" {
		loc.Color = DefaultLocationColor
	}
	if err := ValidateLocation(loc); err != nil {
		return invalid(err)
	}

	loc.ID = ulid.Make()
	loc.ProjectID = projectID
	loc.CreatedAt = s.now().UTC()
	if err := s.locations.Create(ctx, loc); err != nil {
		return oops.Wrapf(err, "create location in project %s", projectID)
	}
	return nil
}

// ListLocations returns the locations of a project owned by ownerID.
func (s *Service) ListLocations(ctx context.Context, ownerID, projectID ulid.ULID) ([]*Location, error) {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	locs, err := s.locations.ListByProject(ctx, projectID)
	if err != nil {
		return nil, oops.Wrapf(err, "list locations of project %s", projectID)
	}
	return locs, nil
}

// GetLocation returns one location of a project owned by ownerID.
func (s *Service) GetLocation(ctx context.Context, ownerID, projectID, id ulid.ULID) (*Location, error) {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.locations.Get(ctx, projectID, id)
}

// UpdateLocation applies patch to a location.
func (s *Service) UpdateLocation(ctx context.Context, ownerID, projectID, id ulid.ULID, patch LocationPatch) (*Location, error) {
	loc, err := s.GetLocation(ctx, ownerID, projectID, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		loc.Name = *patch.Name
	}
	if patch.Type != nil {
		loc.Type = *patch.Type
	}
	if patch.Position != nil {
		loc.Position = *patch.Position
	}
	if patch.Description != nil {
		loc.Description = patch.Description
	}
	if patch.Color != nil {
		loc.Color = *patch.Color
	}
	if patch.Zone != nil {
		loc.Zone = patch.Zone
	}
	if err := ValidateLocation(loc); err != nil {
		return nil, invalid(err)
	}

	if err := s.locations.Update(ctx, loc); err != nil {
		return nil, oops.Wrapf(err, "update location %s", id)
	}
	return loc, nil
}

// DeleteLocation removes a location and the roads touching it.
func (s *Service) DeleteLocation(ctx context.Context, ownerID, projectID, id ulid.ULID) error {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return err
	}
	if err := s.locations.Delete(ctx, projectID, id); err != nil {
		return oops.Wrapf(err, "delete location %s", id)
	}
	return nil
}

// CreateRoad connects two locations of a project owned by ownerID.
// Both endpoints must already exist in that project.
func (s *Service) CreateRoad(ctx context.Context, ownerID, projectID ulid.ULID, road *Road) error {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return err
	}
	if road.Type == "" {
		road.Type = DefaultRoadType
	}
	if err := ValidateRoad(road); err != nil {
		return invalid(err)
	}
	if err := s.requireLocation(ctx, projectID, road.FromLocationID, "from_location"); err != nil {
		return err
	}
	if err := s.requireLocation(ctx, projectID, road.ToLocationID, "to_location"); err != nil {
		return err
	}

	road.ID = ulid.Make()
	road.ProjectID = projectID
	road.CreatedAt = s.now().UTC()
	if err := s.roads.Create(ctx, road); err != nil {
		return oops.Wrapf(err, "create road in project %s", projectID)
	}
	return nil
}

// ListRoads returns the roads of a project owned by ownerID.
func (s *Service) ListRoads(ctx context.Context, ownerID, projectID ulid.ULID) ([]*Road, error) {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	roads, err := s.roads.ListByProject(ctx, projectID)
	if err != nil {
		return nil, oops.Wrapf(err, "list roads of project %s", projectID)
	}
	return roads, nil
}

// GetRoad returns one road of a project owned by ownerID.
func (s *Service) GetRoad(ctx context.Context, ownerID, projectID, id ulid.ULID) (*Road, error) {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.roads.Get(ctx, projectID, id)
}

// UpdateRoad changes distance and type of a road.
func (s *Service) UpdateRoad(ctx context.Context, ownerID, projectID, id ulid.ULID, patch RoadPatch) (*Road, error) {
	road, err := s.GetRoad(ctx, ownerID, projectID, id)
	if err != nil {
		return nil, err
	}
	if patch.Distance != nil {
		road.Distance = *patch.Distance
	}
	if patch.Type != nil {
		road.Type = *patch.Type
	}
	if err := ValidateRoad(road); err != nil {
		return nil, invalid(err)
	}
	if err := s.roads.Update(ctx, road); err != nil {
		return nil, oops.Wrapf(err, "update road %s", id)
	}
	return road, nil
}

// DeleteRoad removes a road.
func (s *Service) DeleteRoad(ctx context.Context, ownerID, projectID, id ulid.ULID) error {
	if _, err := s.ownedProject(ctx, ownerID, projectID); err != nil {
		return err
	}
	if err := s.roads.Delete(ctx, projectID, id); err != nil {
		return oops.Wrapf(err, "delete road %s", id)
	}
	return nil
}

// ownedProject loads a project and hides it unless ownerID owns it.
func (s *Service) ownedProject(ctx context.Context, ownerID, id ulid.ULID) (*Project, error) {
	p, err := s.projects.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != ownerID {
		return nil, oops.Code(CodeProjectNotFound).With("id", id.String()).Wrap(ErrNotFound)
	}
	return p, nil
}

func (s *Service) requireLocation(ctx context.Context, projectID, id ulid.ULID, field string) error {
	if _, err := s.locations.Get(ctx, projectID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return invalid(&ValidationError{Field: field, Message: "unknown location " + id.String()})
		}
		return oops.With("operation", "check "+field).Wrap(err)
	}
	return nil
}

// invalid tags a validation failure with CodeValidation and its field.
func invalid(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return oops.Code(CodeValidation).With("field", ve.Field).Wrap(err)
	}
	return oops.Code(CodeValidation).Wrap(err)
}
