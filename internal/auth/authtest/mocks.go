// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package authtest provides testify mocks and an in-memory store for the auth package interfaces.
package authtest

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/cityplanner/cityplanner/internal/auth"
)

// testingT is the subset of *testing.T the constructors need.
type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a mock that asserts its expectations on cleanup.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) SetActive(ctx context.Context, email string, active bool) error {
	args := m.Called(ctx, email, active)
	return args.Error(0)
}

// MockPasswordHasher is a mock auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a mock that asserts its expectations on cleanup.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(password, digest string) bool {
	args := m.Called(password, digest)
	return args.Bool(0)
}

// MockTokenManager is a mock auth.TokenManager.
type MockTokenManager struct {
	mock.Mock
}

// NewMockTokenManager creates a mock that asserts its expectations on cleanup.
func NewMockTokenManager(t testingT) *MockTokenManager {
	m := &MockTokenManager{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenManager) Issue(subject string, ttl time.Duration) (string, error) {
	args := m.Called(subject, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockTokenManager) Validate(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

// MockAttemptRecorder is a mock auth.AttemptRecorder.
type MockAttemptRecorder struct {
	mock.Mock
}

// NewMockAttemptRecorder creates a mock that asserts its expectations on cleanup.
func NewMockAttemptRecorder(t testingT) *MockAttemptRecorder {
	m := &MockAttemptRecorder{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAttemptRecorder) RecordAuthAttempt(operation, outcome string) {
	m.Called(operation, outcome)
}

var (
	_ auth.UserRepository  = (*MockUserRepository)(nil)
	_ auth.PasswordHasher  = (*MockPasswordHasher)(nil)
	_ auth.TokenManager    = (*MockTokenManager)(nil)
	_ auth.AttemptRecorder = (*MockAttemptRecorder)(nil)
)
