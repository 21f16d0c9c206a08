// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package auth

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Field limits for user records.
const (
	MaxEmailLength    = 254
	MaxFullNameLength = 200
)

// emailRegex is deliberately loose: one @, no whitespace, a dot in the domain.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// User is a credential record.
type User struct {
	ID           ulid.ULID
	Email        string
	FullName     *string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser creates an active User with a generated ID.
// The email is normalized before validation.
func NewUser(email, passwordHash string, fullName *string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_USER").Errorf("password hash cannot be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           ulid.Make(),
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lower-cases an email address.
// Emails are compared case-insensitively everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the shape and length of an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code(CodeInvalidEmail).Errorf("email cannot be empty")
	}
	if len(email) > MaxEmailLength {
		return oops.Code(CodeInvalidEmail).
			With("max", MaxEmailLength).
			Errorf("email must be at most %d characters", MaxEmailLength)
	}
	if !emailRegex.MatchString(email) {
		return oops.Code(CodeInvalidEmail).Errorf("email address is not valid")
	}
	return nil
}

// ValidateFullName checks an optional display name.
func ValidateFullName(fullName *string) error {
	if fullName == nil {
		return nil
	}
	if !utf8.ValidString(*fullName) {
		return oops.Code(CodeInvalidFullName).Errorf("full name must be valid UTF-8")
	}
	if utf8.RuneCountInString(*fullName) > MaxFullNameLength {
		return oops.Code(CodeInvalidFullName).
			With("max", MaxFullNameLength).
			Errorf("full name must be at most %d characters", MaxFullNameLength)
	}
	return nil
}

// UserRepository manages credential persistence.
type UserRepository interface {
	// Create stores a new user.
	// Returns an AUTH_DUPLICATE_EMAIL error if the email is already taken;
	// uniqueness is enforced by the store, not by a prior lookup.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// SetActive sets the active flag of the user with the given email.
	SetActive(ctx context.Context, email string, active bool) error
}
