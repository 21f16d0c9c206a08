// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes attached to errors returned from this package.
const (
	CodeProjectNotFound  = "PROJECT_NOT_FOUND"
	CodeLocationNotFound = "LOCATION_NOT_FOUND"
	CodeRoadNotFound     = "ROAD_NOT_FOUND"
	CodeValidation       = "VALIDATION_FAILED"
	CodeTemplateNotFound = "TEMPLATE_NOT_FOUND"
	CodeTemplateInvalid  = "TEMPLATE_INVALID"
)

// CodeConfigInvalid marks a Service constructed without a required dependency.
const CodeConfigInvalid = "CONFIG_INVALID"
