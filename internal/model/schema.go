package model

import (
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

// artifactSchema is the JSON Schema every model artifact must satisfy
// before decoding. Shape chaining and value finiteness are checked in Go
// after decode; the schema guards structure and required fields.
const artifactSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "tariffd cost model artifact",
  "type": "object",
  "required": ["schema_version", "model_id", "validation_mae", "features", "network"],
  "properties": {
    "schema_version": {"const": 1},
    "model_id": {"type": "string", "minLength": 1},
    "trained_at": {"type": "string"},
    "validation_mae": {"type": "number", "minimum": 0},
    "features": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["name", "kind", "source"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "kind": {"enum": ["numeric", "lookup"]},
          "source": {"type": "string", "minLength": 1},
          "mean": {"type": "number"},
          "scale": {"type": "number"},
          "values": {"type": "object", "additionalProperties": {"type": "number"}},
          "unknown": {"type": "number"}
        }
      }
    },
    "keywords": {"type": "object", "additionalProperties": {"type": "string", "minLength": 1}},
    "network": {
      "type": "object",
      "required": ["layers"],
      "properties": {
        "layers": {
          "type": "array",
          "minItems": 3,
          "maxItems": 3,
          "items": {
            "type": "object",
            "required": ["weights", "bias", "activation"],
            "properties": {
              "weights": {
                "type": "array",
                "minItems": 1,
                "items": {"type": "array", "minItems": 1, "items": {"type": "number"}}
              },
              "bias": {"type": "array", "minItems": 1, "items": {"type": "number"}},
              "activation": {"enum": ["relu", "linear"]}
            }
          }
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

// validateArtifact checks raw artifact bytes against the embedded schema.
func validateArtifact(data []byte) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile([]byte(artifactSchema))
	})
	if schemaErr != nil {
		return fmt.Errorf("compile artifact schema: %w", schemaErr)
	}

	result := compiledSchema.ValidateJSON(data)
	if !result.IsValid() {
		return fmt.Errorf("artifact schema validation failed: %v", result.Errors)
	}
	return nil
}
