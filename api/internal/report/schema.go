package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrMalformed means a payload was found but is not valid JSON.
	ErrMalformed = errors.New("malformed JSON in model output")
	// ErrSchemaMismatch means the JSON parsed but does not satisfy the
	// LabRecord schema (missing fields, wrong shapes, empty entries).
	ErrSchemaMismatch = errors.New("output does not match lab record schema")
)

// Schema is the JSON Schema the extraction prompt quotes and Validate enforces.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "LabRecord",
  "type": "object",
  "required": ["test_name", "report_type", "entries"],
  "properties": {
    "test_name": {
      "type": "string",
      "minLength": 1,
      "description": "Name of the medical lab test, e.g. CBC, Lipid Profile"
    },
    "report_type": {
      "type": "string",
      "enum": ["tabular", "descriptive"]
    },
    "entries": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["field_name", "field_value"],
        "properties": {
          "field_name": {"type": "string", "minLength": 1},
          "field_value": {"type": "string"}
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// Validate extracts the JSON payload from raw model output and checks it
// against the LabRecord schema. Pure: no I/O, no mutation.
func Validate(raw string) (*LabRecord, error) {
	payload, err := ExtractPayload(raw)
	if err != nil {
		return nil, err
	}

	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewStringLoader(payload))
	if err != nil {
		// gojsonschema fails here when the document is not JSON at all
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(msgs, "; "))
	}

	var rec LabRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &rec, nil
}
