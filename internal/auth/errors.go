// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes attached to errors returned from this package.
const (
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeAccountInactive    = "AUTH_ACCOUNT_INACTIVE"
	CodeInvalidEmail       = "AUTH_INVALID_EMAIL"
	CodeInvalidFullName    = "AUTH_INVALID_FULL_NAME"
	CodeEmptyPassword      = "AUTH_EMPTY_PASSWORD"
	CodeUserNotFound       = "USER_NOT_FOUND"

	CodeTokenInvalid   = "TOKEN_INVALID"
	CodeTokenExpired   = "TOKEN_EXPIRED"
	CodeTokenMalformed = "TOKEN_MALFORMED"

	// CodeConfigInvalid marks errors that must abort startup.
	CodeConfigInvalid = "CONFIG_INVALID"
)
