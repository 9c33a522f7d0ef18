package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// SchemaValidator checks documents against a compiled JSON schema.
type SchemaValidator struct {
	schema *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewSchemaValidator compiles schemaJSON.
func NewSchemaValidator(schemaJSON string) (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// MustSchemaValidator is NewSchemaValidator for package-level schemas.
func MustSchemaValidator(schemaJSON string) *SchemaValidator {
	v, err := NewSchemaValidator(schemaJSON)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks a Go value; it is encoded to JSON first, so struct tags apply.
func (v *SchemaValidator) Validate(document interface{}) *ValidationResult {
	return v.validate(gojsonschema.NewGoLoader(document))
}

// ValidateBytes checks a raw JSON document. Malformed JSON is reported as a
// single INVALID_JSON error.
func (v *SchemaValidator) ValidateBytes(document []byte) *ValidationResult {
	return v.validate(gojsonschema.NewBytesLoader(document))
}

func (v *SchemaValidator) validate(loader gojsonschema.JSONLoader) *ValidationResult {
	result, err := v.schema.Validate(loader)
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "(root)",
				Message: err.Error(),
				Code:    "INVALID_JSON",
			}},
		}
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		errs = append(errs, ValidationError{
			Field:   re.Field(),
			Message: re.Description(),
			Code:    strings.ToUpper(re.Type()),
		})
	}

	return &ValidationResult{
		Valid:  result.Valid(),
		Errors: errs,
	}
}

// GetErrorMessages returns a simple list of error messages.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field.
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field and its children.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}

// Summary joins all messages into one line for logs and error details.
func (vr *ValidationResult) Summary() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}
