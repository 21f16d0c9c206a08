// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package auth provides credential storage contracts, password hashing,
// signed access tokens and the login flow for CityPlanner.
//
// # Domain Types
//
// Users should be created with NewUser, which normalizes and validates the
// email address. Repository implementations receive pre-validated users.
//
// # Services
//
// Service coordinates registration, login and bearer token authentication:
//   - Register hashes the password and relies on the store's unique
//     constraint to reject duplicate emails
//   - Login checks existence and password before the active flag, so an
//     inactive account with a correct password gets AUTH_ACCOUNT_INACTIVE
//   - Authenticate turns a bearer token back into an active user
//
// Errors carry samber/oops codes (see the Code* constants) that the HTTP
// layer maps to status codes.
package auth
