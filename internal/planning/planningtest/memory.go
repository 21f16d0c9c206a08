// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package planningtest provides an in-memory planning store for tests.
package planningtest

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/planning"
)

// Store implements the planning repositories and Transactor in memory.
// A failed transaction restores the state from before it started.
type Store struct {
	mu        sync.Mutex
	projects  map[ulid.ULID]planning.Project
	locations map[ulid.ULID]planning.Location
	roads     map[ulid.ULID]planning.Road

	// FailRoadCreate makes every road insert fail, for rollback tests.
	FailRoadCreate error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		projects:  make(map[ulid.ULID]planning.Project),
		locations: make(map[ulid.ULID]planning.Location),
		roads:     make(map[ulid.ULID]planning.Road),
	}
}

// Projects returns the store as a ProjectRepository.
func (s *Store) Projects() planning.ProjectRepository { return projectRepo{s} }

// Locations returns the store as a LocationRepository.
func (s *Store) Locations() planning.LocationRepository { return locationRepo{s} }

// Roads returns the store as a RoadRepository.
func (s *Store) Roads() planning.RoadRepository { return roadRepo{s} }

// InTransaction runs fn and rolls the store back if fn fails.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	projects, locations, roads := maps.Clone(s.projects), maps.Clone(s.locations), maps.Clone(s.roads)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.projects, s.locations, s.roads = projects, locations, roads
		s.mu.Unlock()
		return err
	}
	return nil
}

// Counts reports how many rows each table holds.
func (s *Store) Counts() (projects, locations, roads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.projects), len(s.locations), len(s.roads)
}

func notFound(code string, id ulid.ULID) error {
	return oops.Code(code).With("id", id.String()).Wrap(planning.ErrNotFound)
}

type projectRepo struct{ s *Store }

func (r projectRepo) Create(_ context.Context, p *planning.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.Sectors = slices.Clone(p.Sectors)
	r.s.projects[p.ID] = cp
	return nil
}

func (r projectRepo) Get(_ context.Context, id ulid.ULID) (*planning.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, notFound(planning.CodeProjectNotFound, id)
	}
	p.Sectors = slices.Clone(p.Sectors)
	return &p, nil
}

func (r projectRepo) ListByOwner(_ context.Context, ownerID ulid.ULID) ([]*planning.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*planning.Project
	for _, p := range r.s.projects {
		if p.OwnerID == ownerID {
			cp := p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *planning.Project) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	return out, nil
}

func (r projectRepo) Update(_ context.Context, p *planning.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[p.ID]; !ok {
		return notFound(planning.CodeProjectNotFound, p.ID)
	}
	cp := *p
	cp.Sectors = slices.Clone(p.Sectors)
	r.s.projects[p.ID] = cp
	return nil
}

func (r projectRepo) Delete(_ context.Context, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return notFound(planning.CodeProjectNotFound, id)
	}
	delete(r.s.projects, id)
	maps.DeleteFunc(r.s.locations, func(_ ulid.ULID, l planning.Location) bool { return l.ProjectID == id })
	maps.DeleteFunc(r.s.roads, func(_ ulid.ULID, rd planning.Road) bool { return rd.ProjectID == id })
	return nil
}

type locationRepo struct{ s *Store }

func (r locationRepo) Create(_ context.Context, loc *planning.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locations[loc.ID] = *loc
	return nil
}

func (r locationRepo) Get(_ context.Context, projectID, id ulid.ULID) (*planning.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.locations[id]
	if !ok || loc.ProjectID != projectID {
		return nil, notFound(planning.CodeLocationNotFound, id)
	}
	return &loc, nil
}

func (r locationRepo) ListByProject(_ context.Context, projectID ulid.ULID) ([]*planning.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*planning.Location
	for _, loc := range r.s.locations {
		if loc.ProjectID == projectID {
			cp := loc
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *planning.Location) int { return a.ID.Compare(b.ID) })
	return out, nil
}

func (r locationRepo) Update(_ context.Context, loc *planning.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.locations[loc.ID]; !ok {
		return notFound(planning.CodeLocationNotFound, loc.ID)
	}
	r.s.locations[loc.ID] = *loc
	return nil
}

func (r locationRepo) Delete(_ context.Context, projectID, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.locations[id]
	if !ok || loc.ProjectID != projectID {
		return notFound(planning.CodeLocationNotFound, id)
	}
	delete(r.s.locations, id)
	maps.DeleteFunc(r.s.roads, func(_ ulid.ULID, rd planning.Road) bool {
		return rd.FromLocationID == id || rd.ToLocationID == id
	})
	return nil
}

type roadRepo struct{ s *Store }

func (r roadRepo) Create(_ context.Context, road *planning.Road) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailRoadCreate != nil {
		return r.s.FailRoadCreate
	}
	r.s.roads[road.ID] = *road
	return nil
}

func (r roadRepo) Get(_ context.Context, projectID, id ulid.ULID) (*planning.Road, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	road, ok := r.s.roads[id]
	if !ok || road.ProjectID != projectID {
		return nil, notFound(planning.CodeRoadNotFound, id)
	}
	return &road, nil
}

func (r roadRepo) ListByProject(_ context.Context, projectID ulid.ULID) ([]*planning.Road, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*planning.Road
	for _, road := range r.s.roads {
		if road.ProjectID == projectID {
			cp := road
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *planning.Road) int { return a.ID.Compare(b.ID) })
	return out, nil
}

func (r roadRepo) Update(_ context.Context, road *planning.Road) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.roads[road.ID]; !ok {
		return notFound(planning.CodeRoadNotFound, road.ID)
	}
	r.s.roads[road.ID] = *road
	return nil
}

func (r roadRepo) Delete(_ context.Context, projectID, id ulid.ULID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	road, ok := r.s.roads[id]
	if !ok || road.ProjectID != projectID {
		return notFound(planning.CodeRoadNotFound, id)
	}
	delete(r.s.roads, id)
	return nil
}

var (
	_ planning.ProjectRepository  = projectRepo{}
	_ planning.LocationRepository = locationRepo{}
	_ planning.RoadRepository     = roadRepo{}
	_ planning.Transactor         = (*Store)(nil)
)
