package deadcode

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidThreshold is returned for a minimum confidence outside 0-100.
	ErrInvalidThreshold = errors.New("minimum confidence must be between 0 and 100")
	// ErrInvalidRoot is returned when the project root is missing or not a directory.
	ErrInvalidRoot = errors.New("invalid project root")
	// ErrInvalidPattern is returned for a malformed name or entry glob.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// ValidationError reports a rejected argument.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ConfigError reports an unusable project setup.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
