// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api

import (
	"net/http"
	"strings"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /health", http.HandlerFunc(s.handleHealth))

	s.handle(mux, "POST /api/auth/register", http.HandlerFunc(s.handleRegister))
	s.handle(mux, "POST /api/auth/token", http.HandlerFunc(s.handleToken))
	s.handle(mux, "GET /api/auth/me", s.requireUser(s.handleMe))

	s.handle(mux, "GET /api/templates", http.HandlerFunc(s.handleListTemplates))

	s.handle(mux, "GET /api/projects", s.requireUser(s.handleListProjects))
	s.handle(mux, "POST /api/projects", s.requireUser(s.handleCreateProject))
	s.handle(mux, "GET /api/projects/{id}", s.requireUser(s.handleGetProject))
	s.handle(mux, "PATCH /api/projects/{id}", s.requireUser(s.handleUpdateProject))
	s.handle(mux, "DELETE /api/projects/{id}", s.requireUser(s.handleDeleteProject))

	s.handle(mux, "GET /api/projects/{id}/locations", s.requireUser(s.handleListLocations))
	s.handle(mux, "POST /api/projects/{id}/locations", s.requireUser(s.handleCreateLocation))
	s.handle(mux, "GET /api/projects/{id}/locations/{locationID}", s.requireUser(s.handleGetLocation))
	s.handle(mux, "PATCH /api/projects/{id}/locations/{locationID}", s.requireUser(s.handleUpdateLocation))
	s.handle(mux, "DELETE /api/projects/{id}/locations/{locationID}", s.requireUser(s.handleDeleteLocation))

	s.handle(mux, "GET /api/projects/{id}/roads", s.requireUser(s.handleListRoads))
	s.handle(mux, "POST /api/projects/{id}/roads", s.requireUser(s.handleCreateRoad))
	s.handle(mux, "GET /api/projects/{id}/roads/{roadID}", s.requireUser(s.handleGetRoad))
	s.handle(mux, "PATCH /api/projects/{id}/roads/{roadID}", s.requireUser(s.handleUpdateRoad))
	s.handle(mux, "DELETE /api/projects/{id}/roads/{roadID}", s.requireUser(s.handleDeleteRoad))

	// Outermost first: panics are caught inside the logged request.
	return s.logRequests(s.recoverPanics(s.cors(s.limitBody(mux))))
}

// handle registers h under pattern and labels its metrics with the
// pattern's path, so /api/projects/{id} is one series for every project.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.Handler) {
	route := pattern
	if _, path, ok := strings.Cut(pattern, " "); ok {
		route = path
	}
	mux.Handle(pattern, s.instrument(route, h))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
