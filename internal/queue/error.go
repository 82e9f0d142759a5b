package queue

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig indicates planning configuration is invalid
	ErrInvalidConfig = errors.New("invalid queue configuration")

	// ErrPlanNotStarted indicates a batch operation on a plan still in Built state
	ErrPlanNotStarted = errors.New("plan has not been started")

	// ErrPlanCompleted indicates a batch operation on a finished plan
	ErrPlanCompleted = errors.New("plan is already completed")
)

// ConfigError is the hard failure of the planning pipeline: a bad forced
// strategy or threshold aborts planning before any allocation work begins.
type ConfigError struct {
	Field  string // Configuration field name
	Value  string // Offending value
	Reason string // Why it was rejected
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s=%q %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// NewConfigError creates a new ConfigError
func NewConfigError(field, value, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

// IsConfigError checks if an error is a ConfigError
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
