package ratecard

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// cardSchema is the JSON Schema every stored or seeded rate card must
// satisfy before decoding. Surcharge expressions are compiled in Go after
// decode; the schema guards structure and required fields.
const cardSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "tariffd carrier rate card",
  "type": "object",
  "required": ["version", "currency", "carriers"],
  "properties": {
    "version": {"type": "integer", "minimum": 1},
    "currency": {"type": "string", "minLength": 1},
    "carriers": {
      "type": "object",
      "minProperties": 1,
      "additionalProperties": {
        "type": "object",
        "required": ["flat_fee"],
        "properties": {
          "flat_fee": {"type": "number", "minimum": 0},
          "per_kg": {"type": "number", "minimum": 0},
          "surcharge": {"type": "string"}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// validateCard checks raw rate card bytes against the embedded schema.
func validateCard(data []byte) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile([]byte(cardSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("compile rate card schema: %w", schemaErr)
	}

	result := compiledSchema.ValidateJSON(data)
	if !result.IsValid() {
		return fmt.Errorf("rate card schema validation failed: %v", result.Errors)
	}
	return nil
}
