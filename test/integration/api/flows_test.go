// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

//go:build integration

package api_test

import (
	"net/http"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

var _ = Describe("Accounts", func() {
	It("registers, logs in and reads the current user", func() {
		status, user := call(http.MethodPost, "/api/auth/register", "", map[string]any{
			"email": "Ada@Example.com", "password": "hunter2", "full_name": "Ada Lovelace",
		})
		Expect(status).To(Equal(http.StatusCreated))
		Expect(user).To(HaveKeyWithValue("email", "ada@example.com"))
		Expect(user).To(HaveKeyWithValue("is_active", true))
		Expect(user).NotTo(HaveKey("password_hash"))

		status, tok := call(http.MethodPost, "/api/auth/token", "", map[string]any{"email": "ada@example.com", "password": "hunter2"})
		Expect(status).To(Equal(http.StatusOK))
		Expect(tok).To(HaveKeyWithValue("token_type", "bearer"))
		Expect(tok["expires_in"]).To(BeNumerically("==", 1800))

		status, me := call(http.MethodGet, "/api/auth/me", tok["access_token"].(string), nil)
		Expect(status).To(Equal(http.StatusOK))
		Expect(me["id"]).To(Equal(user["id"]))
	})

	It("lets exactly one of two concurrent registrations win", func() {
		var wg sync.WaitGroup
		statuses := make([]int, 2)
		for i := range statuses {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				statuses[i], _ = call(http.MethodPost, "/api/auth/register", "", map[string]any{"email": "race@example.com", "password": "pw"})
			}()
		}
		wg.Wait()
		Expect(statuses).To(ConsistOf(http.StatusCreated, http.StatusConflict))
	})

	It("distinguishes an inactive account only after the password matches", func() {
		token := signUp("idle@example.com")
		Expect(env.auth.SetActive(env.ctx, "IDLE@example.com", false)).To(Succeed())

		status, body := call(http.MethodPost, "/api/auth/token", "", map[string]any{"email": "idle@example.com", "password": "hunter2"})
		Expect(status).To(Equal(http.StatusForbidden))
		Expect(body).To(HaveKeyWithValue("code", "AUTH_ACCOUNT_INACTIVE"))

		status, body = call(http.MethodPost, "/api/auth/token", "", map[string]any{"email": "idle@example.com", "password": "wrong"})
		Expect(status).To(Equal(http.StatusUnauthorized))
		Expect(body).To(HaveKeyWithValue("code", "AUTH_INVALID_CREDENTIALS"))

		status, _ = call(http.MethodGet, "/api/auth/me", token, nil)
		Expect(status).To(Equal(http.StatusForbidden))
	})
})

var _ = Describe("Planning", func() {
	var token string

	BeforeEach(func() {
		token = signUp("planner@example.com")
	})

	It("seeds a campus project from its template", func() {
		status, p := call(http.MethodPost, "/api/projects", token, map[string]any{
			"name": "North Campus", "model_type": "corporate", "sectors": []string{"admin", "research"},
		})
		Expect(status).To(Equal(http.StatusCreated))
		id := p["id"].(string)

		Expect(callList("/api/projects/"+id+"/locations", token)).To(HaveLen(4))
	})

	It("builds a road network and cascades deletes", func() {
		status, p := call(http.MethodPost, "/api/projects", token, map[string]any{"name": "Blank", "sectors": []string{}})
		Expect(status).To(Equal(http.StatusCreated))
		pid := p["id"].(string)
		Expect(callList("/api/projects/"+pid+"/locations", token)).To(BeEmpty())

		ids := make([]string, 0, 2)
		for _, name := range []string{"Depot", "Market"} {
			status, loc := call(http.MethodPost, "/api/projects/"+pid+"/locations", token, map[string]any{
				"name": name, "type": "Building", "position": []float64{0, 0, float64(len(ids))},
			})
			Expect(status).To(Equal(http.StatusCreated))
			ids = append(ids, loc["id"].(string))
		}

		status, road := call(http.MethodPost, "/api/projects/"+pid+"/roads", token, map[string]any{
			"from_location": ids[0], "to_location": ids[1], "distance": 120.5,
		})
		Expect(status).To(Equal(http.StatusCreated))
		Expect(road).To(HaveKeyWithValue("type", "primary"))

		status, body := call(http.MethodPost, "/api/projects/"+pid+"/roads", token, map[string]any{
			"from_location": ids[0], "to_location": ids[0], "distance": 1,
		})
		Expect(status).To(Equal(http.StatusUnprocessableEntity))
		Expect(body).To(HaveKeyWithValue("code", "VALIDATION_FAILED"))

		status, _ = call(http.MethodDelete, "/api/projects/"+pid+"/locations/"+ids[1], token, nil)
		Expect(status).To(Equal(http.StatusNoContent))
		Expect(callList("/api/projects/"+pid+"/roads", token)).To(BeEmpty())

		status, _ = call(http.MethodDelete, "/api/projects/"+pid, token, nil)
		Expect(status).To(Equal(http.StatusNoContent))
		status, _ = call(http.MethodGet, "/api/projects/"+pid, token, nil)
		Expect(status).To(Equal(http.StatusNotFound))
	})

	It("hides other owners' projects", func() {
		status, p := call(http.MethodPost, "/api/projects", token, map[string]any{"name": "Mine"})
		Expect(status).To(Equal(http.StatusCreated))

		other := signUp("other@example.com")
		status, body := call(http.MethodGet, "/api/projects/"+p["id"].(string), other, nil)
		Expect(status).To(Equal(http.StatusNotFound))
		Expect(body).To(HaveKeyWithValue("code", "PROJECT_NOT_FOUND"))
		Expect(callList("/api/projects", other)).To(BeEmpty())
	})

	It("updates project fields partially", func() {
		_, p := call(http.MethodPost, "/api/projects", token, map[string]any{"name": "Old", "description": "keep"})
		status, updated := call(http.MethodPatch, "/api/projects/"+p["id"].(string), token, map[string]any{"name": "New", "theme": "dusk"})
		Expect(status).To(Equal(http.StatusOK))
		Expect(updated).To(HaveKeyWithValue("name", "New"))
		Expect(updated).To(HaveKeyWithValue("description", "keep"))
		Expect(updated).To(HaveKeyWithValue("theme", "dusk"))
		Expect(updated["updated_at"]).NotTo(BeNil())
	})
})
