// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

// Package planning models planning projects and the locations and roads
// placed inside them.
//
// Every Service operation is scoped to an owner: a project that belongs to
// someone else is reported exactly like a project that does not exist.
// New projects are seeded from an embedded Template chosen by the project's
// ModelType, restricted to the sectors the owner selected.
package planning
