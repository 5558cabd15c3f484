package template

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"career-report-workers/internal/common/errors"
)

// sectionSchema validates uploaded template JSON before it is parsed.
const sectionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["id"],
    "additionalProperties": false,
    "properties": {
      "id": {"type": "string", "minLength": 1, "pattern": "^[a-z0-9_]+$"},
      "title": {"type": "string"},
      "sub_title": {"type": "string"},
      "description": {"type": "string"},
      "description_fn": {"type": "string"},
      "prompt": {"type": "string"}
    }
  }
}`

// ValidateJSON checks a raw template document against the section schema.
// Schema errors are joined into a single TEMPLATE_VALIDATION_FAILED error.
func ValidateJSON(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(sectionSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return errors.NewTemplateValidationFailedError(fmt.Sprintf("schema validation error: %v", err))
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return errors.NewTemplateValidationFailedError(strings.Join(msgs, "; "))
	}
	return nil
}

// ParseAndValidate runs schema validation then full parsing, so callers
// get field-level schema errors before semantic ones.
func ParseAndValidate(data []byte) ([]Section, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	return Parse(data)
}
