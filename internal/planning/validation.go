// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"fmt"
	"math"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// Validation limits.
const (
	MaxProjectNameLength   = 200
	MaxNameLength          = 200
	MaxTypeLength          = 64
	MaxDescriptionLength   = 4000
	MaxSectorCount         = 32
	MaxSectorLength        = 64
	MaxThemeLength         = 64
	MaxCoordinateMagnitude = 1e6
)

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validateText(field, value string, maxLen int, required bool) error {
	if value == "" {
		if required {
			return &ValidationError{Field: field, Message: "cannot be empty"}
		}
		return nil
	}
	if !utf8.ValidString(value) {
		return &ValidationError{Field: field, Message: "must be valid UTF-8"}
	}
	if utf8.RuneCountInString(value) > maxLen {
		return &ValidationError{Field: field, Message: fmt.Sprintf("exceeds maximum length of %d", maxLen)}
	}
	for _, r := range value {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return &ValidationError{Field: field, Message: "cannot contain control characters"}
		}
	}
	return nil
}

// ValidateProjectName checks a project name: 1 to 200 characters.
func ValidateProjectName(name string) error {
	return validateText("name", name, MaxProjectNameLength, true)
}

// ValidateDescription checks a free-form description.
func ValidateDescription(desc string) error {
	return validateText("description", desc, MaxDescriptionLength, false)
}

// ValidateSectors checks the sector list of a project.
func ValidateSectors(sectors []string) error {
	if len(sectors) > MaxSectorCount {
		return &ValidationError{Field: "sectors", Message: fmt.Sprintf("exceeds maximum count of %d", MaxSectorCount)}
	}
	seen := make(map[string]struct{}, len(sectors))
	for _, s := range sectors {
		if err := validateText("sectors", s, MaxSectorLength, true); err != nil {
			return err
		}
		if _, dup := seen[s]; dup {
			return &ValidationError{Field: "sectors", Message: fmt.Sprintf("duplicate sector %q", s)}
		}
		seen[s] = struct{}{}
	}
	return nil
}

// ValidateTheme checks an optional theme name.
func ValidateTheme(theme *string) error {
	if theme == nil {
		return nil
	}
	return validateText("theme", *theme, MaxThemeLength, false)
}

// ValidateColor checks a #rrggbb color.
func ValidateColor(color string) error {
	if !colorRegex.MatchString(color) {
		return &ValidationError{Field: "color", Message: "must be a #rrggbb hex color"}
	}
	return nil
}

// ValidatePosition rejects non-finite or absurdly large coordinates.
func ValidatePosition(p Position) error {
	for _, c := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) || math.Abs(c) > MaxCoordinateMagnitude {
			return &ValidationError{Field: "position", Message: "coordinates must be finite and within range"}
		}
	}
	return nil
}

// ValidateProject checks every field of a new project.
func ValidateProject(p *Project) error {
	if err := ValidateProjectName(p.Name); err != nil {
		return err
	}
	if err := ValidateDescription(p.Description); err != nil {
		return err
	}
	if !p.ModelType.IsValid() {
		return &ValidationError{Field: "model_type", Message: fmt.Sprintf("must be %q or %q", ModelTypePlanning, ModelTypeCorporate)}
	}
	if err := ValidateSectors(p.Sectors); err != nil {
		return err
	}
	return ValidateTheme(p.Theme)
}

// ValidateLocation checks every field of a location.
func ValidateLocation(loc *Location) error {
	if err := validateText("name", loc.Name, MaxNameLength, true); err != nil {
		return err
	}
	if err := validateText("type", loc.Type, MaxTypeLength, true); err != nil {
		return err
	}
	if err := ValidatePosition(loc.Position); err != nil {
		return err
	}
	if loc.Description != nil {
		if err := ValidateDescription(*loc.Description); err != nil {
			return err
		}
	}
	if err := ValidateColor(loc.Color); err != nil {
		return err
	}
	if loc.Zone != nil {
		return validateText("zone", *loc.Zone, MaxSectorLength, false)
	}
	return nil
}

// ValidateRoad checks distance, type and that the endpoints differ.
func ValidateRoad(road *Road) error {
	if road.FromLocationID == road.ToLocationID {
		return &ValidationError{Field: "to_location", Message: "must differ from from_location"}
	}
	if math.IsNaN(road.Distance) || math.IsInf(road.Distance, 0) || road.Distance < 0 {
		return &ValidationError{Field: "distance", Message: "must be a non-negative number"}
	}
	return validateText("type", road.Type, MaxTypeLength, true)
}
