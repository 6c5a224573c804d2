package descriptor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gluonch/carrot2/errors"
)

// Descriptor is the decoded content of a component descriptor file
type Descriptor struct {
	// ID must match the identifier the descriptor was resolved for when set
	ID string `json:"id,omitempty"`
	// Kind selects the builder in the kind catalog
	Kind        string          `json:"kind"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

const descriptorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["kind"],
  "additionalProperties": false,
  "properties": {
    "id":          {"type": "string", "minLength": 1},
    "kind":        {"type": "string", "minLength": 1},
    "name":        {"type": "string"},
    "description": {"type": "string"},
    "config":      {"type": "object"}
  }
}`

var documentSchema = mustSchema(descriptorSchema)

func mustSchema(s string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(s))
	if err != nil {
		panic(fmt.Sprintf("descriptor: invalid built-in schema: %v", err))
	}
	return schema
}

// Decode validates a decoded document against the descriptor schema and
// converts it to a Descriptor.
func Decode(doc map[string]any) (*Descriptor, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.WrapInvalid(err, "descriptor", "Decode", "document normalization")
	}

	if err := validate(documentSchema, data); err != nil {
		return nil, errors.Wrap(err, "descriptor", "Decode", "schema validation")
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.WrapInvalid(err, "descriptor", "Decode", "descriptor unmarshal")
	}
	return &d, nil
}

func validate(schema *gojsonschema.Schema, data []byte) error {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return errors.WrapInvalid(err, "descriptor", "validate", "document loading")
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return errors.WrapInvalid(errors.Errorf(errors.ErrInvalidData, "%s", strings.Join(problems, "; ")),
		"descriptor", "validate", "schema check")
}
