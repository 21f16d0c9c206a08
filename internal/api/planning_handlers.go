// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api

import (
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/internal/planning"
)

// pathID reads a ULID path value. A malformed id names nothing, so it is
// reported with the resource's not-found code.
func pathID(r *http.Request, name, notFoundCode string) (ulid.ULID, error) {
	raw := r.PathValue(name)
	id, err := ulid.ParseStrict(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(notFoundCode).With("id", raw).Wrap(planning.ErrNotFound)
	}
	return id, nil
}

func projectID(r *http.Request) (ulid.ULID, error) {
	return pathID(r, "id", planning.CodeProjectNotFound)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request, user *auth.User) {
	projects, err := s.planning.ListProjects(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, mapSlice(projects, newProjectResponse))
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request, user *auth.User) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p := &planning.Project{
		Name:        req.Name,
		Description: req.Description,
		ModelType:   planning.ModelType(req.ModelType),
		Sectors:     req.Sectors,
		Theme:       req.Theme,
	}
	if err := s.planning.CreateProject(r.Context(), user.ID, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, newProjectResponse(p))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request, user *auth.User) {
	id, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.planning.GetProject(r.Context(), user.ID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newProjectResponse(p))
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request, user *auth.User) {
	id, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.planning.UpdateProject(r.Context(), user.ID, id, planning.ProjectPatch{
		Name:        req.Name,
		Description: req.Description,
		Sectors:     req.Sectors,
		Theme:       req.Theme,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newProjectResponse(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request, user *auth.User) {
	id, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.planning.DeleteProject(r.Context(), user.ID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	locs, err := s.planning.ListLocations(r.Context(), user.ID, pid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, mapSlice(locs, newLocationResponse))
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := req.location()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.planning.CreateLocation(r.Context(), user.ID, pid, loc); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, newLocationResponse(loc))
}

func (s *Server) handleGetLocation(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := locationIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.planning.GetLocation(r.Context(), user.ID, pid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newLocationResponse(loc))
}

func (s *Server) handleUpdateLocation(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := locationIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	loc, err := s.planning.UpdateLocation(r.Context(), user.ID, pid, id, req.patch())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newLocationResponse(loc))
}

func (s *Server) handleDeleteLocation(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := locationIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.planning.DeleteLocation(r.Context(), user.ID, pid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func locationIDs(r *http.Request) (pid, lid ulid.ULID, err error) {
	if pid, err = projectID(r); err != nil {
		return pid, lid, err
	}
	lid, err = pathID(r, "locationID", planning.CodeLocationNotFound)
	return pid, lid, err
}

func (s *Server) handleListRoads(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	roads, err := s.planning.ListRoads(r.Context(), user.ID, pid)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, mapSlice(roads, newRoadResponse))
}

func (s *Server) handleCreateRoad(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, err := projectID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createRoadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	road, err := req.road()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.planning.CreateRoad(r.Context(), user.ID, pid, road); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, newRoadResponse(road))
}

func (s *Server) handleGetRoad(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := roadIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	road, err := s.planning.GetRoad(r.Context(), user.ID, pid, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newRoadResponse(road))
}

func (s *Server) handleUpdateRoad(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := roadIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateRoadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	road, err := s.planning.UpdateRoad(r.Context(), user.ID, pid, id, planning.RoadPatch{
		Distance: req.Distance,
		Type:     req.Type,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, newRoadResponse(road))
}

func (s *Server) handleDeleteRoad(w http.ResponseWriter, r *http.Request, user *auth.User) {
	pid, id, err := roadIDs(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.planning.DeleteRoad(r.Context(), user.ID, pid, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func roadIDs(r *http.Request) (pid, rid ulid.ULID, err error) {
	if pid, err = projectID(r); err != nil {
		return pid, rid, err
	}
	rid, err = pathID(r, "roadID", planning.CodeRoadNotFound)
	return pid, rid, err
}
