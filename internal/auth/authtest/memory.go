// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package authtest

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/cityplanner/cityplanner/internal/auth"
)

// UserStore is an in-memory auth.UserRepository. Its uniqueness check
// happens under a lock, standing in for the case-insensitive unique index.
type UserStore struct {
	mu      sync.Mutex
	byEmail map[string]*auth.User
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{byEmail: make(map[string]*auth.User)}
}

// Create stores a copy of user.
func (r *UserStore) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return oops.Code(auth.CodeDuplicateEmail).With("email", user.Email).Errorf("email already registered")
	}
	u := *user
	r.byEmail[key] = &u
	return nil
}

// GetByID returns a copy of the user with id.
func (r *UserStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, oops.Code(auth.CodeUserNotFound).With("id", id.String()).Wrap(auth.ErrNotFound)
}

// GetByEmail returns a copy of the user with email, ignoring case.
func (r *UserStore) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, oops.Code(auth.CodeUserNotFound).With("email", email).Wrap(auth.ErrNotFound)
	}
	c := *u
	return &c, nil
}

// SetActive flips the active flag of the user with email.
func (r *UserStore) SetActive(_ context.Context, email string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return oops.Code(auth.CodeUserNotFound).With("email", email).Wrap(auth.ErrNotFound)
	}
	u.IsActive = active
	return nil
}

// Len reports how many users are stored.
func (r *UserStore) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEmail)
}

var _ auth.UserRepository = (*UserStore)(nil)
