package validation

import (
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error joins all field errors into one line.
func (r *ValidationResult) Error() string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return strings.Join(msgs, "; ")
}

// FilterStateSchema describes a persisted job filter document. Legacy postedDate spellings
// from the mobile client are accepted.
const FilterStateSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"salaryMin": {"type": ["integer", "null"], "minimum": 0},
		"salaryMax": {"type": ["integer", "null"], "minimum": 0},
		"remoteWork": {
			"type": ["array", "null"],
			"items": {"enum": ["remote", "hybrid", "on-site"]}
		},
		"jobTypes": {
			"type": ["array", "null"],
			"items": {"enum": ["full-time", "part-time", "contract", "internship"]}
		},
		"experienceLevel": {
			"type": ["array", "null"],
			"items": {"enum": ["entry", "mid", "senior", "executive"]}
		},
		"postedDate": {
			"enum": ["last-24h", "last-7-days", "last-30-days", "any", "24h", "7days", "30days", ""]
		},
		"indigenousOwnedOnly": {"type": "boolean"},
		"industries": {
			"type": ["array", "null"],
			"items": {"type": "string"}
		}
	}
}`

var (
	filterSchemaOnce sync.Once
	filterSchema     *gojsonschema.Schema
	filterSchemaErr  error
)

func compiledFilterSchema() (*gojsonschema.Schema, error) {
	filterSchemaOnce.Do(func() {
		filterSchema, filterSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(FilterStateSchema))
	})
	return filterSchema, filterSchemaErr
}

// ValidateFilterState checks a raw persisted filter document.
func ValidateFilterState(doc []byte) (*ValidationResult, error) {
	schema, err := compiledFilterSchema()
	if err != nil {
		return nil, fmt.Errorf("compile filter schema: %w", err)
	}
	return validate(schema, gojsonschema.NewBytesLoader(doc))
}

// ValidateInput checks decoded job variables against a JSON schema string.
func ValidateInput(input map[string]interface{}, schemaJSON string) (*ValidationResult, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return validate(schema, gojsonschema.NewGoLoader(input))
}

func validate(schema *gojsonschema.Schema, doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	result, err := schema.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}
