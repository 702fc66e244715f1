package domain

import (
	"errors"
	"fmt"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// Declaration field errors
	ErrFieldRequired    = errors.New("required field is missing")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidParamType = errors.New("invalid parameter type")

	// Parameter spec errors
	ErrDefaultTypeMismatch = errors.New("default value does not match declared type")
	ErrEnumTypeMismatch    = errors.New("enum value does not match declared type")
	ErrInvalidPattern      = errors.New("pattern is not a valid regular expression")
	ErrPatternNotString    = errors.New("pattern applies only to string parameters")
	ErrRangeNotInteger     = errors.New("min/max apply only to integer parameters")
	ErrRangeInverted       = errors.New("min is greater than max")

	// File group errors
	ErrFileEntryInvalid = errors.New("file entry must be a string or a list of strings")
	ErrFileEntryEmpty   = errors.New("file path must not be empty")

	// Value errors
	ErrUnsupportedValue = errors.New("unsupported value type")
	ErrNonStringKey     = errors.New("object keys must be strings")
)

// SchemaError reports a structural defect in a template declaration.
type SchemaError struct {
	Template string // template identifier, empty when not yet known
	Field    string // e.g. "parameters.port.default"
	Message  string
	Err      error
}

func (e *SchemaError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("template %s: %s: %s", e.Template, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// NewSchemaError creates a new SchemaError.
func NewSchemaError(template, field, message string, err error) *SchemaError {
	return &SchemaError{
		Template: template,
		Field:    field,
		Message:  message,
		Err:      err,
	}
}
