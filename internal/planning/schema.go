// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CityPlanner Contributors

package planning

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// TemplateSchemaID is the $id of the generated template schema.
const TemplateSchemaID = "https://cityplanner.dev/schemas/template.schema.json"

var (
	compiledOnce   sync.Once
	compiledSchema *jschema.Schema
	compiledErr    error
)

// GenerateTemplateSchema generates a JSON Schema from the Template struct.
func GenerateTemplateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Template{})
	schema.ID = jsonschema.ID(TemplateSchemaID)
	schema.Title = "CityPlanner Project Template"
	schema.Description = "Schema for embedded project template files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.With("operation", "marshal template schema").Wrap(err)
	}
	return data, nil
}

// ValidateTemplateData validates YAML template data against the schema.
func ValidateTemplateData(data []byte) error {
	if len(data) == 0 {
		return oops.Code(CodeTemplateInvalid).Errorf("template data is empty")
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code(CodeTemplateInvalid).Wrapf(err, "invalid YAML")
	}

	sch, err := templateSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONTypes(doc)); err != nil {
		return oops.Code(CodeTemplateInvalid).Wrapf(err, "schema validation failed")
	}
	return nil
}

func templateSchema() (*jschema.Schema, error) {
	compiledOnce.Do(func() {
		compiledSchema, compiledErr = compileTemplateSchema()
	})
	return compiledSchema, compiledErr
}

func compileTemplateSchema() (*jschema.Schema, error) {
	raw, err := GenerateTemplateSchema()
	if err != nil {
		return nil, err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, oops.With("operation", "parse template schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(TemplateSchemaID, doc); err != nil {
		return nil, oops.With("operation", "add template schema").Wrap(err)
	}
	sch, err := c.Compile(TemplateSchemaID)
	if err != nil {
		return nil, oops.With("operation", "compile template schema").Wrap(err)
	}
	return sch, nil
}

// toJSONTypes converts yaml.v3 output into the value types the validator
// expects: ints become float64, maps keep string keys.
func toJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			out[k] = toJSONTypes(v)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, v := range val {
			out[i] = toJSONTypes(v)
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case uint64:
		return float64(val)
	default:
		return val
	}
}
