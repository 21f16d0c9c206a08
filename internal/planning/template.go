// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"embed"
	"fmt"
	"path"
	"slices"
	"sort"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// TemplateFormatVersion is the template file format this build understands.
// A template's requires constraint is checked against it.
const TemplateFormatVersion = "1.0.0"

//go:embed templates/*.yaml
var templatesFS embed.FS

// Template is a reusable set of locations and roads a new project starts with.
type Template struct {
	Name        string             `json:"name" yaml:"name" jsonschema:"pattern=^[a-z][a-z0-9-]*$"`
	Version     string             `json:"version" yaml:"version" jsonschema:"minLength=1"`
	Requires    string             `json:"requires,omitempty" yaml:"requires,omitempty"`
	Title       string             `json:"title" yaml:"title" jsonschema:"minLength=1"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	ModelType   ModelType          `json:"model_type" yaml:"model_type" jsonschema:"enum=planning,enum=corporate"`
	Locations   []TemplateLocation `json:"locations" yaml:"locations" jsonschema:"minItems=1"`
	Roads       []TemplateRoad     `json:"roads,omitempty" yaml:"roads,omitempty"`
}

// TemplateLocation is a location inside a Template. Key is local to the file.
type TemplateLocation struct {
	Key         string    `json:"key" yaml:"key" jsonschema:"minLength=1"`
	Name        string    `json:"name" yaml:"name" jsonschema:"minLength=1"`
	Type        string    `json:"type" yaml:"type" jsonschema:"minLength=1"`
	Position    []float64 `json:"position" yaml:"position" jsonschema:"minItems=3,maxItems=3"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Color       string    `json:"color,omitempty" yaml:"color,omitempty" jsonschema:"pattern=^#[0-9a-fA-F]{6}$"`
	Zone        string    `json:"zone" yaml:"zone" jsonschema:"minLength=1"`
}

// TemplateRoad connects two TemplateLocation keys.
type TemplateRoad struct {
	From     string  `json:"from" yaml:"from" jsonschema:"minLength=1"`
	To       string  `json:"to" yaml:"to" jsonschema:"minLength=1"`
	Distance float64 `json:"distance" yaml:"distance" jsonschema:"minimum=0"`
	Type     string  `json:"type,omitempty" yaml:"type,omitempty"`
}

// ParseTemplate validates data against the template schema, decodes it
// and checks version constraints and road references.
func ParseTemplate(data []byte) (*Template, error) {
	if err := ValidateTemplateData(data); err != nil {
		return nil, err
	}

	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, oops.Code(CodeTemplateInvalid).Wrapf(err, "decode template")
	}
	if err := t.check(); err != nil {
		return nil, oops.Code(CodeTemplateInvalid).With("template", t.Name).Wrap(err)
	}
	return &t, nil
}

func (t *Template) check() error {
	if _, err := semver.NewVersion(t.Version); err != nil {
		return fmt.Errorf("version %q: %w", t.Version, err)
	}
	if t.Requires != "" {
		constraint, err := semver.NewConstraint(t.Requires)
		if err != nil {
			return fmt.Errorf("requires %q: %w", t.Requires, err)
		}
		if !constraint.Check(semver.MustParse(TemplateFormatVersion)) {
			return fmt.Errorf("requires %q, format version is %s", t.Requires, TemplateFormatVersion)
		}
	}

	keys := make(map[string]struct{}, len(t.Locations))
	for _, loc := range t.Locations {
		if _, dup := keys[loc.Key]; dup {
			return fmt.Errorf("duplicate location key %q", loc.Key)
		}
		keys[loc.Key] = struct{}{}
	}
	for _, road := range t.Roads {
		if _, ok := keys[road.From]; !ok {
			return fmt.Errorf("road from unknown location %q", road.From)
		}
		if _, ok := keys[road.To]; !ok {
			return fmt.Errorf("road to unknown location %q", road.To)
		}
		if road.From == road.To {
			return fmt.Errorf("road %q connects a location to itself", road.From)
		}
	}
	return nil
}

// Zones lists the distinct zones of the template in file order.
func (t *Template) Zones() []string {
	var zones []string
	for _, loc := range t.Locations {
		if !slices.Contains(zones, loc.Zone) {
			zones = append(zones, loc.Zone)
		}
	}
	return zones
}

// Seed instantiates the template for projectID. Only locations whose zone is
// in sectors are copied; template keys are replaced by fresh IDs and a road
// is kept only when both of its endpoints were copied.
func (t *Template) Seed(projectID ulid.ULID, sectors []string, now time.Time) ([]*Location, []*Road) {
	ids := make(map[string]ulid.ULID)
	var locs []*Location
	for _, tl := range t.Locations {
		if !slices.Contains(sectors, tl.Zone) {
			continue
		}
		id := ulid.Make()
		ids[tl.Key] = id

		zone := tl.Zone
		loc := &Location{
			ID:        id,
			ProjectID: projectID,
			Name:      tl.Name,
			Type:      tl.Type,
			Position:  Position{X: tl.Position[0], Y: tl.Position[1], Z: tl.Position[2]},
			Color:     tl.Color,
			Zone:      &zone,
			CreatedAt: now,
		}
		if tl.Description != "" {
			desc := tl.Description
			loc.Description = &desc
		}
		if loc.Color == "" {
			loc.Color = DefaultLocationColor
		}
		locs = append(locs, loc)
	}

	var roads []*Road
	for _, tr := range t.Roads {
		from, okFrom := ids[tr.From]
		to, okTo := ids[tr.To]
		if !okFrom || !okTo {
			continue
		}
		roadType := tr.Type
		if roadType == "" {
			roadType = DefaultRoadType
		}
		roads = append(roads, &Road{
			ID:             ulid.Make(),
			ProjectID:      projectID,
			FromLocationID: from,
			ToLocationID:   to,
			Distance:       tr.Distance,
			Type:           roadType,
			CreatedAt:      now,
		})
	}
	return locs, roads
}

// Catalog is the set of templates available for seeding.
type Catalog struct {
	byName      map[string]*Template
	byModelType map[ModelType]*Template
}

// NewCatalog builds a catalog. Each model type may have one template.
func NewCatalog(templates ...*Template) (*Catalog, error) {
	c := &Catalog{
		byName:      make(map[string]*Template, len(templates)),
		byModelType: make(map[ModelType]*Template, len(templates)),
	}
	for _, t := range templates {
		if _, dup := c.byName[t.Name]; dup {
			return nil, oops.Code(CodeTemplateInvalid).With("template", t.Name).Errorf("duplicate template name")
		}
		if _, dup := c.byModelType[t.ModelType]; dup {
			return nil, oops.Code(CodeTemplateInvalid).
				With("template", t.Name).
				With("model_type", string(t.ModelType)).
				Errorf("model type already has a template")
		}
		c.byName[t.Name] = t
		c.byModelType[t.ModelType] = t
	}
	return c, nil
}

// LoadCatalog parses the embedded templates.
func LoadCatalog() (*Catalog, error) {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, oops.Code(CodeTemplateInvalid).With("operation", "read templates dir").Wrap(err)
	}

	var templates []*Template
	for _, entry := range entries {
		name := path.Join("templates", entry.Name())
		data, err := templatesFS.ReadFile(name)
		if err != nil {
			return nil, oops.Code(CodeTemplateInvalid).With("file", name).Wrap(err)
		}
		t, err := ParseTemplate(data)
		if err != nil {
			return nil, oops.With("file", name).Wrap(err)
		}
		templates = append(templates, t)
	}
	return NewCatalog(templates...)
}

// List returns all templates sorted by name.
func (c *Catalog) List() []*Template {
	out := make([]*Template, 0, len(c.byName))
	for _, t := range c.byName {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ForModelType returns the template that seeds projects of model type m.
func (c *Catalog) ForModelType(m ModelType) (*Template, error) {
	t, ok := c.byModelType[m]
	if !ok {
		return nil, oops.Code(CodeTemplateNotFound).With("model_type", string(m)).Wrap(ErrNotFound)
	}
	return t, nil
}
