// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api

import (
	"net/http"

	"github.com/cityplanner/cityplanner/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, newUserResponse(user))
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	s.writeJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(token.ExpiresIn.Seconds()),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *auth.User) {
	s.writeJSON(w, r, http.StatusOK, newUserResponse(user))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, mapSlice(s.planning.Templates().List(), newTemplateResponse))
}
