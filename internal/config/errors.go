package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingConfigFile is returned when the configuration file cannot be found.
	ErrMissingConfigFile = errors.New("configuration file not found")
	// ErrParse is returned when the configuration file is not valid YAML.
	ErrParse = errors.New("malformed configuration document")
	// ErrSchemaViolation is returned when a document does not match the configuration schema.
	ErrSchemaViolation = errors.New("configuration schema violation")
	// ErrAlreadyRegistered is returned when a scope already holds a configuration.
	ErrAlreadyRegistered = errors.New("configuration already registered in this scope")
)

// SchemaError reports a single schema violation at a field path such as
// "admins[1].permissions[0]".
type SchemaError struct {
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Unwrap makes SchemaError match ErrSchemaViolation with errors.Is.
func (e *SchemaError) Unwrap() error {
	return ErrSchemaViolation
}

func schemaErrorf(path, format string, args ...any) *SchemaError {
	return &SchemaError{Path: path, Reason: fmt.Sprintf(format, args...)}
}
