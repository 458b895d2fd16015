// Package app provides the adapter for the external measurement/stimulus
// executable. The launcher serializes the resolved configuration records
// into its temp workspace and hands the paths to the adapter as settings;
// the adapter runs the executable synchronously and exposes the terminal
// result for validation.
package app

import (
	"context"
	"os/exec"
	"time"

	"github.com/sciops/benchrun/internal/errors"
)

// Result captures the terminal state of one executable invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// App is the external-process adapter capability. It is the only service
// the launcher requires.
type App interface {
	// Validate checks that the executable and its inputs exist.
	Validate() error
	// AddSettings merges key-value settings passed to the process as
	// -p key=value properties. Later calls override earlier keys.
	AddSettings(settings map[string]string)
	// Run executes the process synchronously and records the result.
	Run(ctx context.Context) (*Result, error)
	// Result returns the recorded result, or an error if Run has not
	// completed yet.
	Result() (*Result, error)
	// ParseOutput validates the recorded result: a non-zero exit code is
	// always an error; stderr content is an error unless allowStderr.
	ParseOutput(allowStderr bool) error
	// PromptLayout resolves an optional visualization layout from the
	// given directory, prompting via the supplied chooser when several
	// exist. A nil chooser or empty directory resolves to no layout.
	PromptLayout(layoutDir string, choose func(candidates []string) (string, error)) error
}

// LookPath reports whether an executable resolves on PATH or relative to
// the working directory.
func LookPath(executable string) error {
	if _, err := exec.LookPath(executable); err != nil {
		return errors.NewValidationError("executable not found", err).WithField("executable")
	}
	return nil
}
