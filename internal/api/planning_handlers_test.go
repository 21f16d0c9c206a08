// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package api_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cityplanner/cityplanner/internal/api"
	"github.com/cityplanner/cityplanner/internal/planning"
)

// createProject creates a project through the API and returns its id.
func (a *testAPI) createProject(token string, body map[string]any) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/projects", token, body)
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](a.t, rec)["id"].(string)
}

func (a *testAPI) createLocation(token, projectID, name string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/projects/"+projectID+"/locations", token, map[string]any{
		"name":     name,
		"type":     "Building",
		"position": []float64{1, 0, 2},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[map[string]any](a.t, rec)["id"].(string)
}

func TestProjects_CreateSeedsFromTemplate(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")

	rec := a.do(http.MethodPost, "/api/projects", token, map[string]any{
		"name":    "Riverside",
		"sectors": []string{"government", "healthcare"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	p := decode[map[string]any](t, rec)
	assert.Equal(t, "Riverside", p["name"])
	assert.Equal(t, "planning", p["model_type"])
	assert.Equal(t, []any{"government", "healthcare"}, p["sectors"])
	assert.Nil(t, p["updated_at"])
	assert.Nil(t, p["theme"])
	id := p["id"].(string)

	rec = a.do(http.MethodGet, "/api/projects/"+id+"/locations", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	locs := decode[[]map[string]any](t, rec)
	assert.Len(t, locs, 4)
	for _, loc := range locs {
		assert.Equal(t, id, loc["project_id"])
		assert.Len(t, loc["position"], 3)
	}

	rec = a.do(http.MethodGet, "/api/projects/"+id+"/roads", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]map[string]any](t, rec), 2)
}

func TestProjects_CRUD(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")

	rec := a.do(http.MethodGet, "/api/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	first := a.createProject(token, map[string]any{"name": "First"})
	second := a.createProject(token, map[string]any{"name": "Second", "model_type": "corporate", "theme": "dark"})

	rec = a.do(http.MethodGet, "/api/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 2)
	ids := []any{list[0]["id"], list[1]["id"]}
	assert.ElementsMatch(t, []any{first, second}, ids)

	rec = a.do(http.MethodGet, "/api/projects/"+second, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, "corporate", got["model_type"])
	assert.Equal(t, "dark", got["theme"])
	assert.Equal(t, []any{}, got["sectors"])

	rec = a.do(http.MethodPatch, "/api/projects/"+first, token, map[string]any{
		"name":    "Renamed",
		"sectors": []string{"green"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[map[string]any](t, rec)
	assert.Equal(t, "Renamed", patched["name"])
	assert.Equal(t, []any{"green"}, patched["sectors"])
	assert.NotNil(t, patched["updated_at"])

	rec = a.do(http.MethodDelete, "/api/projects/"+first, token, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/projects/"+first, token, nil)
	requireError(t, rec, http.StatusNotFound, planning.CodeProjectNotFound)
}

func TestProjects_Validation(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")

	rec := a.do(http.MethodPost, "/api/projects", token, map[string]any{"name": ""})
	body := requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
	assert.Contains(t, body["detail"], "name")

	rec = a.do(http.MethodPost, "/api/projects", token, map[string]any{"name": "X", "model_type": "harbour"})
	body = requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
	assert.Contains(t, body["detail"], "model_type")

	id := a.createProject(token, map[string]any{"name": "Valid"})
	rec = a.do(http.MethodPatch, "/api/projects/"+id, token, map[string]any{"sectors": []string{"green", "green"}})
	requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
}

func TestProjects_OwnerScoping(t *testing.T) {
	a := newTestAPI(t)
	alice := a.login("alice@example.com")
	bob := a.login("bob@example.com")

	id := a.createProject(alice, map[string]any{"name": "Alice's"})

	rec := a.do(http.MethodGet, "/api/projects", bob, nil)
	assert.JSONEq(t, "[]", rec.Body.String())

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec = a.do(method, "/api/projects/"+id, bob, nil)
		requireError(t, rec, http.StatusNotFound, planning.CodeProjectNotFound)
	}
	rec = a.do(http.MethodPatch, "/api/projects/"+id, bob, map[string]any{"name": "Mine now"})
	requireError(t, rec, http.StatusNotFound, planning.CodeProjectNotFound)

	rec = a.do(http.MethodGet, "/api/projects/"+id+"/locations", bob, nil)
	requireError(t, rec, http.StatusNotFound, planning.CodeProjectNotFound)

	rec = a.do(http.MethodGet, "/api/projects/"+id, alice, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjects_NeedToken(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodGet, "/api/projects", "", nil)
	requireError(t, rec, http.StatusUnauthorized, api.CodeMissingToken)
}

func TestProjects_MalformedID(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")

	rec := a.do(http.MethodGet, "/api/projects/not-an-id", token, nil)
	requireError(t, rec, http.StatusNotFound, planning.CodeProjectNotFound)

	id := a.createProject(token, map[string]any{"name": "P"})
	rec = a.do(http.MethodGet, "/api/projects/"+id+"/roads/42", token, nil)
	requireError(t, rec, http.StatusNotFound, planning.CodeRoadNotFound)
}

func TestProjects_SeedFailureIsInternal(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")
	a.store.FailRoadCreate = errors.New("disk on fire")

	rec := a.do(http.MethodPost, "/api/projects", token, map[string]any{
		"name":    "Doomed",
		"sectors": []string{"government", "healthcare"},
	})
	body := requireError(t, rec, http.StatusInternalServerError, api.CodeInternal)
	assert.Equal(t, "internal server error", body["detail"])
	assert.NotContains(t, rec.Body.String(), "disk on fire")
	assert.Contains(t, a.logs.String(), "disk on fire")

	projects, locations, roads := a.store.Counts()
	assert.Zero(t, projects+locations+roads, "seeding rolled back")
}

func TestLocations(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")
	pid := a.createProject(token, map[string]any{"name": "P"})
	base := "/api/projects/" + pid + "/locations"

	t.Run("create applies default color", func(t *testing.T) {
		rec := a.do(http.MethodPost, base, token, map[string]any{
			"name":     "Library",
			"type":     "Building",
			"position": []float64{10, 0, -5},
			"zone":     "education",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		loc := decode[map[string]any](t, rec)
		assert.Equal(t, planning.DefaultLocationColor, loc["color"])
		assert.Equal(t, []any{10.0, 0.0, -5.0}, loc["position"])
		assert.Equal(t, "education", loc["zone"])
		assert.Nil(t, loc["description"])
	})

	t.Run("create requires position", func(t *testing.T) {
		rec := a.do(http.MethodPost, base, token, map[string]any{"name": "X", "type": "Park"})
		body := requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
		assert.Contains(t, body["detail"], "position")
	})

	t.Run("create rejects bad color", func(t *testing.T) {
		rec := a.do(http.MethodPost, base, token, map[string]any{
			"name": "X", "type": "Park", "position": []float64{0, 0, 0}, "color": "blue",
		})
		requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
	})

	t.Run("position needs three coordinates", func(t *testing.T) {
		rec := a.do(http.MethodPost, base, token, `{"name":"X","type":"Park","position":[1,2,3,4]}`)
		body := requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
		assert.Contains(t, body["detail"], "position")
	})

	t.Run("get patch delete", func(t *testing.T) {
		id := a.createLocation(token, pid, "Hall")

		rec := a.do(http.MethodGet, base+"/"+id, token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Hall", decode[map[string]any](t, rec)["name"])

		rec = a.do(http.MethodPatch, base+"/"+id, token, map[string]any{
			"position":    []float64{7, 1, 7},
			"description": "Town hall",
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		patched := decode[map[string]any](t, rec)
		assert.Equal(t, []any{7.0, 1.0, 7.0}, patched["position"])
		assert.Equal(t, "Town hall", patched["description"])
		assert.Equal(t, "Hall", patched["name"], "absent fields are unchanged")

		rec = a.do(http.MethodDelete, base+"/"+id, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = a.do(http.MethodGet, base+"/"+id, token, nil)
		requireError(t, rec, http.StatusNotFound, planning.CodeLocationNotFound)
	})

	t.Run("unknown location", func(t *testing.T) {
		rec := a.do(http.MethodGet, base+"/"+ulid.Make().String(), token, nil)
		requireError(t, rec, http.StatusNotFound, planning.CodeLocationNotFound)
	})
}

func TestRoads(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")
	pid := a.createProject(token, map[string]any{"name": "P"})
	from := a.createLocation(token, pid, "A")
	to := a.createLocation(token, pid, "B")
	base := "/api/projects/" + pid + "/roads"

	rec := a.do(http.MethodPost, base, token, map[string]any{
		"from_location": from,
		"to_location":   to,
		"distance":      120.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	road := decode[map[string]any](t, rec)
	assert.Equal(t, from, road["from_location"])
	assert.Equal(t, to, road["to_location"])
	assert.Equal(t, planning.DefaultRoadType, road["type"])
	roadID := road["id"].(string)

	t.Run("rejections", func(t *testing.T) {
		tests := []struct {
			name  string
			body  map[string]any
			field string
		}{
			{name: "self loop", body: map[string]any{"from_location": from, "to_location": from}, field: "to_location"},
			{name: "malformed endpoint", body: map[string]any{"from_location": "nope", "to_location": to}, field: "from_location"},
			{name: "unknown endpoint", body: map[string]any{"from_location": from, "to_location": ulid.Make().String()}, field: "to_location"},
			{name: "negative distance", body: map[string]any{"from_location": from, "to_location": to, "distance": -1}, field: "distance"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := a.do(http.MethodPost, base, token, tt.body)
				body := requireError(t, rec, http.StatusUnprocessableEntity, planning.CodeValidation)
				assert.Contains(t, body["detail"], tt.field)
			})
		}
	})

	t.Run("patch changes distance and type only", func(t *testing.T) {
		rec := a.do(http.MethodPatch, base+"/"+roadID, token, map[string]any{
			"distance":      80,
			"type":          "secondary",
			"from_location": to,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		patched := decode[map[string]any](t, rec)
		assert.Equal(t, 80.0, patched["distance"])
		assert.Equal(t, "secondary", patched["type"])
		assert.Equal(t, from, patched["from_location"])
	})

	t.Run("deleting an endpoint removes the road", func(t *testing.T) {
		rec := a.do(http.MethodDelete, "/api/projects/"+pid+"/locations/"+from, token, nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = a.do(http.MethodGet, base+"/"+roadID, token, nil)
		requireError(t, rec, http.StatusNotFound, planning.CodeRoadNotFound)

		rec = a.do(http.MethodGet, base, token, nil)
		assert.JSONEq(t, "[]", rec.Body.String())
	})
}

func TestRoads_Delete(t *testing.T) {
	a := newTestAPI(t)
	token := a.login("planner@example.com")
	pid := a.createProject(token, map[string]any{"name": "P"})
	from := a.createLocation(token, pid, "A")
	to := a.createLocation(token, pid, "B")

	rec := a.do(http.MethodPost, "/api/projects/"+pid+"/roads", token, map[string]any{"from_location": from, "to_location": to})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[map[string]any](t, rec)["id"].(string)

	rec = a.do(http.MethodDelete, "/api/projects/"+pid+"/roads/"+id, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(http.MethodDelete, "/api/projects/"+pid+"/roads/"+id, token, nil)
	requireError(t, rec, http.StatusNotFound, planning.CodeRoadNotFound)
}

func TestTemplates(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	templates := decode[[]map[string]any](t, rec)
	require.Len(t, templates, 2)
	assert.Equal(t, "campus", templates[0]["name"])
	assert.Equal(t, "corporate", templates[0]["model_type"])
	assert.Equal(t, "city", templates[1]["name"])
	assert.Contains(t, templates[1]["zones"], "healthcare")
	assert.Equal(t, 14.0, templates[1]["locations"])
}
