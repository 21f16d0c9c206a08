// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
	"github.com/cityplanner/cityplanner/internal/planning"
)

type registerRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	IsActive bool    `json:"is_active"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:       u.ID.String(),
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type createProjectRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ModelType   string   `json:"model_type"`
	Sectors     []string `json:"sectors"`
	Theme       *string  `json:"theme"`
}

type updateProjectRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Sectors     *[]string `json:"sectors"`
	Theme       *string   `json:"theme"`
}

type projectResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ModelType   string     `json:"model_type"`
	Sectors     []string   `json:"sectors"`
	Theme       *string    `json:"theme"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func newProjectResponse(p *planning.Project) projectResponse {
	sectors := p.Sectors
	if sectors == nil {
		sectors = []string{}
	}
	return projectResponse{
		ID:          p.ID.String(),
		OwnerID:     p.OwnerID.String(),
		Name:        p.Name,
		Description: p.Description,
		ModelType:   string(p.ModelType),
		Sectors:     sectors,
		Theme:       p.Theme,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// position is [x, y, z] on the wire.
type position [3]float64

func (p *position) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return err
	}
	if len(coords) != len(p) {
		return invalidField("position", "must have exactly 3 coordinates")
	}
	copy(p[:], coords)
	return nil
}

func (p position) model() planning.Position {
	return planning.Position{X: p[0], Y: p[1], Z: p[2]}
}

// locationRequest serves both create and patch; nil fields are absent.
type locationRequest struct {
	Name        *string   `json:"name"`
	Type        *string   `json:"type"`
	Position    *position `json:"position"`
	Description *string   `json:"description"`
	Color       *string   `json:"color"`
	Zone        *string   `json:"zone"`
}

func (req locationRequest) location() (*planning.Location, error) {
	if req.Position == nil {
		return nil, invalidField("position", "is required")
	}
	loc := &planning.Location{
		Position:    req.Position.model(),
		Description: req.Description,
		Zone:        req.Zone,
	}
	if req.Name != nil {
		loc.Name = *req.Name
	}
	if req.Type != nil {
		loc.Type = *req.Type
	}
	if req.Color != nil {
		loc.Color = *req.Color
	}
	return loc, nil
}

func (req locationRequest) patch() planning.LocationPatch {
	patch := planning.LocationPatch{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Color:       req.Color,
		Zone:        req.Zone,
	}
	if req.Position != nil {
		pos := req.Position.model()
		patch.Position = &pos
	}
	return patch
}

type locationResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Position    position  `json:"position"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	Zone        *string   `json:"zone"`
	CreatedAt   time.Time `json:"created_at"`
}

func newLocationResponse(l *planning.Location) locationResponse {
	return locationResponse{
		ID:          l.ID.String(),
		ProjectID:   l.ProjectID.String(),
		Name:        l.Name,
		Type:        l.Type,
		Position:    position{l.Position.X, l.Position.Y, l.Position.Z},
		Description: l.Description,
		Color:       l.Color,
		Zone:        l.Zone,
		CreatedAt:   l.CreatedAt,
	}
}

type createRoadRequest struct {
	FromLocation string  `json:"from_location"`
	ToLocation   string  `json:"to_location"`
	Distance     float64 `json:"distance"`
	Type         string  `json:"type"`
}

func (req createRoadRequest) road() (*planning.Road, error) {
	from, err := parseID(req.FromLocation, "from_location")
	if err != nil {
		return nil, err
	}
	to, err := parseID(req.ToLocation, "to_location")
	if err != nil {
		return nil, err
	}
	return &planning.Road{
		FromLocationID: from,
		ToLocationID:   to,
		Distance:       req.Distance,
		Type:           req.Type,
	}, nil
}

type updateRoadRequest struct {
	Distance *float64 `json:"distance"`
	Type     *string  `json:"type"`
}

type roadResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	FromLocation string    `json:"from_location"`
	ToLocation   string    `json:"to_location"`
	Distance     float64   `json:"distance"`
	Type         string    `json:"type"`
	CreatedAt    time.Time `json:"created_at"`
}

func newRoadResponse(r *planning.Road) roadResponse {
	return roadResponse{
		ID:           r.ID.String(),
		ProjectID:    r.ProjectID.String(),
		FromLocation: r.FromLocationID.String(),
		ToLocation:   r.ToLocationID.String(),
		Distance:     r.Distance,
		Type:         r.Type,
		CreatedAt:    r.CreatedAt,
	}
}

type templateResponse struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	ModelType   string   `json:"model_type"`
	Zones       []string `json:"zones"`
	Locations   int      `json:"locations"`
	Roads       int      `json:"roads"`
}

func newTemplateResponse(t *planning.Template) templateResponse {
	return templateResponse{
		Name:        t.Name,
		Version:     t.Version,
		Title:       t.Title,
		Description: t.Description,
		ModelType:   string(t.ModelType),
		Zones:       t.Zones(),
		Locations:   len(t.Locations),
		Roads:       len(t.Roads),
	}
}

func mapSlice[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}

func invalidField(field, msg string) error {
	return oops.Code(planning.CodeValidation).
		With("field", field).
		Wrap(&planning.ValidationError{Field: field, Message: msg})
}

// parseID parses a ULID from a request body field.
func parseID(s, field string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, invalidField(field, "must be a valid id")
	}
	return id, nil
}
