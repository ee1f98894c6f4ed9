package scenario

import (
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const specSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "user_count", "crud_profile"],
  "properties": {
    "name": {"type": "string"},
    "user_count": {"type": "integer"},
    "operation_count": {"type": "integer"},
    "file_count": {"type": "integer"},
    "seed": {"type": "integer"},
    "initial_files": {
      "type": "object",
      "additionalProperties": {"type": "integer"}
    },
    "crud_profile": {
      "type": "array",
      "items": {"type": "number"},
      "minItems": 4,
      "maxItems": 4
    },
    "sizes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "size_min", "size_max"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "size_min": {"type": "integer"},
          "size_max": {"type": "integer"},
          "crud_profile": {
            "type": "array",
            "items": {"type": "number"},
            "minItems": 4,
            "maxItems": 4
          }
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var schemaLoader = gojsonschema.NewStringLoader(specSchema)

// validateSchema checks the JSON form of a scenario against the scenario schema.
func validateSchema(document []byte) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(document))
	if err != nil {
		return errors.Wrap(err, "scenario is not valid JSON")
	}
	if res.Valid() {
		return nil
	}
	var result *multierror.Error
	for _, e := range res.Errors() {
		result = multierror.Append(result, errors.New(strings.TrimPrefix(e.String(), "(root): ")))
	}
	return result.ErrorOrNil()
}
