package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/starford/auw/internal/models"
)

// ErrMalformed is returned when the persisted payload cannot be decoded.
var ErrMalformed = errors.New("store: malformed payload")

// SchemaURL identifies PayloadSchema.
const SchemaURL = "https://github.com/starford/auw/todos.schema.json"

// PayloadSchema is the JSON schema of the persisted state: an array of todo
// records. Unknown fields are allowed and ignored.
const PayloadSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "auw persisted todos",
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "id":          { "type": "integer" },
      "title":       { "type": ["string", "null"] },
      "description": { "type": ["string", "null"] },
      "isChecked":   { "type": ["boolean", "null"] },
      "priority":    { "type": ["integer", "null"] }
    }
  }
}`

var payloadSchema = compileSchema()

func compileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(SchemaURL, strings.NewReader(PayloadSchema)); err != nil {
		panic(fmt.Sprintf("store: add schema: %v", err))
	}
	schema, err := compiler.Compile(SchemaURL)
	if err != nil {
		panic(fmt.Sprintf("store: compile schema: %v", err))
	}
	return schema
}

// Decode parses a persisted payload. A payload that decodes to a falsy value
// (null, false, 0 or "") is an empty collection, like an absent key.
func Decode(raw string) ([]models.Todo, error) {
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if isEmptyPayload(doc) {
		return nil, nil
	}
	if err := payloadSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, schemaError(err))
	}
	var records []models.Todo
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for i, r := range records {
		if r.ID == math.MaxInt64 {
			return nil, fmt.Errorf("%w: /%d/id: no id can follow %d", ErrMalformed, i, r.ID)
		}
	}
	return records, nil
}

func isEmptyPayload(doc any) bool {
	switch v := doc.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	}
	return false
}

// Encode serializes records as a persisted payload.
func Encode(records []models.Todo) (string, error) {
	if records == nil {
		records = []models.Todo{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("store: encode: %w", err)
	}
	return string(b), nil
}

// schemaError reduces a validation error tree to its first leaf cause.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Errorf("%s: %s", loc, ve.Message)
}
