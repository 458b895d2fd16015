package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure.
type ValidationError struct {
	Field   string // The config field path (e.g., "run.subject")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError.
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all
// validation errors found.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Directories.Data == "" {
		errors = append(errors, ValidationError{
			Field:   "directories.data",
			Value:   c.Directories.Data,
			Message: "must not be empty",
		})
	}
	if c.Directories.ConfigLibrary == "" {
		errors = append(errors, ValidationError{
			Field:   "directories.config_library",
			Value:   c.Directories.ConfigLibrary,
			Message: "must not be empty",
		})
	}

	if c.App.TimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "app.timeout_minutes",
			Value:   c.App.TimeoutMinutes,
			Message: "must be non-negative",
		})
	}

	if c.Transfer.ManifestDir != "" && c.Transfer.Destination == "" {
		errors = append(errors, ValidationError{
			Field:   "transfer.destination",
			Value:   c.Transfer.Destination,
			Message: "required when transfer.manifest_dir is set",
		})
	}

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}
