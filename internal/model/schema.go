package model

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// artifactSchema is the structural contract of the artifact document.
// Semantic invariants (dimensions, ternary values) are checked by Validate.
const artifactSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "architecture", "quantization", "weights", "biases", "classes", "featureCount"],
  "properties": {
    "version":      {"type": "integer", "minimum": 1},
    "architecture": {"type": "array", "minItems": 2, "items": {"type": "integer", "minimum": 1}},
    "quantization": {"type": "string", "enum": ["ternary", "dense"]},
    "weights": {
      "type": "object",
      "patternProperties": {"^layer[0-9]+$": {"type": "array", "items": {"type": "number"}}},
      "additionalProperties": false
    },
    "biases": {
      "type": "object",
      "patternProperties": {"^layer[0-9]+$": {"type": "array", "items": {"type": "number"}}},
      "additionalProperties": false
    },
    "classes":      {"type": "array", "items": {"type": "string"}},
    "featureCount": {"type": "integer"},
    "featureNames": {"type": "array", "items": {"type": "string"}},
    "accuracy":     {"type": "number"},
    "trainedOn":    {"type": "integer", "minimum": 0},
    "trainedAt":    {"type": "string"}
  }
}`

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(artifactSchema))
	if err != nil {
		panic(fmt.Sprintf("compile artifact schema: %v", err))
	}
	return s
}

// validateSchema checks raw JSON against the structural schema.
func validateSchema(data []byte) error {
	result, err := compiledSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return invalid("document", "malformed JSON: %v", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return invalid("document", "%s", strings.Join(msgs, "; "))
}
