// Package errors provides centralized error definitions and error handling
// utilities for the benchrun codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - LauncherError: errors raised by the run lifecycle state machine
//   - ServiceError: errors related to the service registry
//   - GitError: errors related to git operations (status, reset, submodules)
//   - PickerError: errors raised while resolving configuration artifacts
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewServiceError("service already registered", errors.ErrServiceRegistered)
//
//	// With context wrapping
//	err := errors.NewGitError("reset failed", baseErr).WithRepository("/repo").WithGitOutput(out)
//
// Checking errors:
//
//	if errors.Is(err, errors.ErrServiceNotConfigured) { ... }
//
//	var gitErr *errors.GitError
//	if errors.As(err, &gitErr) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Service-registry sentinel errors
var (
	// ErrServiceRegistered indicates a second registration under an existing name.
	ErrServiceRegistered = New("service already registered")
	// ErrServiceNotRegistered indicates the named service was never attached.
	ErrServiceNotRegistered = New("service not registered")
	// ErrServiceNotConfigured indicates a required service is absent.
	ErrServiceNotConfigured = New("service not configured")
	// ErrServiceTypeMismatch indicates a registered service has the wrong capability type.
	ErrServiceTypeMismatch = New("service type mismatch")
	// ErrOwnerBound indicates the registry is already bound to a launcher.
	ErrOwnerBound = New("owner already bound")
	// ErrReentrantBuild indicates a service constructor re-entered its own build.
	ErrReentrantBuild = New("re-entrant service construction")
)

// Git-related sentinel errors
var (
	// ErrGitNotInstalled indicates the git executable is missing from PATH.
	ErrGitNotInstalled = New("git executable not found")
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrDirtyRepository indicates uncommitted changes block the run.
	ErrDirtyRepository = New("repository has uncommitted changes")
)

// Launcher sentinel errors
var (
	// ErrValidationFailed indicates environment validation did not pass.
	ErrValidationFailed = New("environment validation failed")
	// ErrAppNotRun indicates the app result was read before execution.
	ErrAppNotRun = New("app has not been run yet")
	// ErrInterrupted indicates the operator canceled the run.
	ErrInterrupted = New("interrupted by operator")
	// ErrConstraintFailed indicates a resource constraint did not hold.
	ErrConstraintFailed = New("resource constraint failed")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrUserDeclined indicates the operator answered no to a prompt.
	ErrUserDeclined = New("declined by operator")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// LauncherError represents errors raised by the run lifecycle state machine.
//
// Example:
//
//	err := errors.NewLauncherError("validation failed", errors.ErrValidationFailed).
//		WithStage("EnvironmentValidated")
type LauncherError struct {
	baseError
	Stage string
}

// NewLauncherError creates a new LauncherError.
func NewLauncherError(message string, cause error) *LauncherError {
	return &LauncherError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithStage adds the lifecycle stage to the error context.
func (e *LauncherError) WithStage(stage string) *LauncherError {
	e.Stage = stage
	return e
}

// WithSeverity sets the error severity.
func (e *LauncherError) WithSeverity(s Severity) *LauncherError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *LauncherError) Error() string {
	prefix := "launcher error"
	if e.Stage != "" {
		prefix = fmt.Sprintf("launcher error [stage=%s]", e.Stage)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *LauncherError) Is(target error) bool {
	if _, ok := target.(*LauncherError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ServiceError represents errors related to the service registry.
// These are programmer or configuration errors and are always fatal.
//
// Example:
//
//	err := errors.NewServiceError("duplicate registration", errors.ErrServiceRegistered).
//		WithService("data_transfer")
type ServiceError struct {
	baseError
	Service string
}

// NewServiceError creates a new ServiceError.
func NewServiceError(message string, cause error) *ServiceError {
	return &ServiceError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityCritical,
			userFacing: true,
		},
	}
}

// WithService adds the service name to the error context.
func (e *ServiceError) WithService(name string) *ServiceError {
	e.Service = name
	return e
}

// Error returns the formatted error message.
func (e *ServiceError) Error() string {
	prefix := "service error"
	if e.Service != "" {
		prefix = fmt.Sprintf("service error [service=%s]", e.Service)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ServiceError) Is(target error) bool {
	if _, ok := target.(*ServiceError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// GitError represents errors related to git operations.
//
// Example:
//
//	err := errors.NewGitError("failed to reset", baseErr).
//		WithRepository("/data/repo").
//		WithGitOutput(output)
type GitError struct {
	baseError
	Repository string
	GitOutput  string
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithRepository adds the repository path to the error context.
func (e *GitError) WithRepository(repo string) *GitError {
	e.Repository = repo
	return e
}

// WithGitOutput adds the git command output to the error context.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.GitOutput = strings.TrimSpace(output)
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	prefix := "git error"
	if e.Repository != "" {
		prefix = fmt.Sprintf("git error [repo=%s]", e.Repository)
	}

	msg := prefix + ": " + e.message
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	if e.GitOutput != "" {
		msg = msg + "\n" + e.GitOutput
	}
	return msg
}

// Is checks if this error matches the target.
func (e *GitError) Is(target error) bool {
	if _, ok := target.(*GitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// PickerError represents errors raised while resolving configuration artifacts.
//
// Example:
//
//	err := errors.NewPickerError("no rig candidates", errors.ErrInvalidInput).
//		WithArtifact("rig").
//		WithDirectory("/library/Rig/host-1")
type PickerError struct {
	baseError
	Artifact  string
	Directory string
}

// NewPickerError creates a new PickerError.
func NewPickerError(message string, cause error) *PickerError {
	return &PickerError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithArtifact adds the artifact kind (rig, session, task) to the error context.
func (e *PickerError) WithArtifact(kind string) *PickerError {
	e.Artifact = kind
	return e
}

// WithDirectory adds the searched directory to the error context.
func (e *PickerError) WithDirectory(dir string) *PickerError {
	e.Directory = dir
	return e
}

// Error returns the formatted error message.
func (e *PickerError) Error() string {
	var parts []string
	if e.Artifact != "" {
		parts = append(parts, fmt.Sprintf("artifact=%s", e.Artifact))
	}
	if e.Directory != "" {
		parts = append(parts, fmt.Sprintf("dir=%s", e.Directory))
	}

	prefix := "picker error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("picker error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *PickerError) Is(target error) bool {
	if _, ok := target.(*PickerError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a resource could not be found.
type NotFoundError struct {
	baseError
	Resource string
	Name     string
}

// NewNotFoundError creates a new NotFoundError for a resource type and name.
func NewNotFoundError(resource, name string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s %q not found", resource, name),
			severity:   SeverityError,
			userFacing: true,
		},
		Resource: resource,
		Name:     name,
	}
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates invalid input or state.
type ValidationError struct {
	baseError
	Field string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithField adds the offending field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	prefix := "validation error"
	if e.Field != "" {
		prefix = fmt.Sprintf("validation error [field=%s]", e.Field)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError indicates that an operation exceeded its deadline.
type TimeoutError struct {
	baseError
	Operation string
}

// NewTimeoutError creates a new TimeoutError for the named operation.
func NewTimeoutError(operation string) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("%s timed out", operation),
			cause:      ErrTimeout,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Operation: operation,
	}
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsFatal reports whether the error should terminate the run with a
// non-zero exit code. Registry misuse and failed environment validation
// are always fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return true
	}
	return Is(err, ErrValidationFailed) ||
		Is(err, ErrDirtyRepository) ||
		Is(err, ErrConstraintFailed) ||
		Is(err, ErrInterrupted)
}

// IsUserFacing reports whether the error message is safe to print to the
// operator. Errors that don't implement the classification interface are
// treated as internal.
func IsUserFacing(err error) bool {
	var classified interface{ IsUserFacing() bool }
	if errors.As(err, &classified) {
		return classified.IsUserFacing()
	}
	return false
}
