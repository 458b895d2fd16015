package app

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// WorkflowApp launches a workflow-driven executable (the stimulus and
// acquisition engine) with property settings passed on the command line.
// It implements App.
type WorkflowApp struct {
	Executable string
	Workflow   string
	Layout     string
	LayoutDir  string
	WorkDir    string
	StartFlag  bool
	Timeout    time.Duration

	settings map[string]string
	result   *Result
	logger   *logging.Logger
}

// Option configures a WorkflowApp.
type Option func(*WorkflowApp)

// WithLayout sets a fixed visualization layout file.
func WithLayout(layout string) Option {
	return func(a *WorkflowApp) { a.Layout = layout }
}

// WithLayoutDir sets the directory searched for visualization layouts.
func WithLayoutDir(dir string) Option {
	return func(a *WorkflowApp) { a.LayoutDir = dir }
}

// WithWorkDir sets the process working directory.
func WithWorkDir(dir string) Option {
	return func(a *WorkflowApp) { a.WorkDir = dir }
}

// WithTimeout bounds the process runtime. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *WorkflowApp) { a.Timeout = d }
}

// WithLogger attaches a logger for command diagnostics.
func WithLogger(logger *logging.Logger) Option {
	return func(a *WorkflowApp) { a.logger = logger }
}

// NewWorkflowApp creates an adapter for the given executable and workflow
// file. The workflow runs with the start flag by default, so the process
// terminates when the workflow completes.
func NewWorkflowApp(executable, workflow string, opts ...Option) *WorkflowApp {
	a := &WorkflowApp{
		Executable: executable,
		Workflow:   workflow,
		StartFlag:  true,
		settings:   make(map[string]string),
		logger:     logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Validate checks that the executable, workflow, and optional layout exist.
func (a *WorkflowApp) Validate() error {
	if err := LookPath(a.Executable); err != nil {
		return err
	}
	if _, err := os.Stat(a.Workflow); err != nil {
		return errors.NewValidationError("workflow file not found", err).WithField("workflow")
	}
	if a.Layout != "" {
		if _, err := os.Stat(a.Layout); err != nil {
			return errors.NewValidationError("layout file not found", err).WithField("layout")
		}
	}
	if a.LayoutDir != "" {
		if _, err := os.Stat(a.LayoutDir); err != nil {
			return errors.NewValidationError("layout directory not found", err).WithField("layout_dir")
		}
	}
	return nil
}

// AddSettings merges key-value settings passed to the process as
// -p key=value properties.
func (a *WorkflowApp) AddSettings(settings map[string]string) {
	for k, v := range settings {
		a.settings[k] = v
	}
}

// Args assembles the command-line arguments for the process.
func (a *WorkflowApp) Args() []string {
	args := []string{a.Workflow}
	if a.StartFlag {
		args = append(args, "--start")
	}
	if a.Layout != "" {
		args = append(args, "--visualizer-layout", a.Layout)
	}

	// Settings in sorted order so the command line is reproducible.
	keys := make([]string, 0, len(a.settings))
	for k := range a.settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-p", k+"="+a.settings[k])
	}
	return args
}

// Run executes the process synchronously and records the result. The
// process runs to completion or to the configured timeout; there is no
// mid-flight cancellation beyond ctx.
func (a *WorkflowApp) Run(ctx context.Context) (*Result, error) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	args := a.Args()
	a.logger.Debug("launching app", "executable", a.Executable, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, a.Executable, args...)
	if a.WorkDir != "" {
		cmd.Dir = a.WorkDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			// Process never started (bad path, context deadline).
			a.result = result
			if ctx.Err() != nil {
				return result, errors.NewTimeoutError("app process")
			}
			return result, errors.NewLauncherError("failed to start app process", runErr)
		}
	}

	a.result = result
	a.logger.Info("app process completed", "exit_code", result.ExitCode, "duration", result.Duration.String())
	return result, nil
}

// Result returns the recorded result, or ErrAppNotRun if Run has not
// completed yet.
func (a *WorkflowApp) Result() (*Result, error) {
	if a.result == nil {
		return nil, errors.ErrAppNotRun
	}
	return a.result, nil
}

// ParseOutput validates the recorded result.
func (a *WorkflowApp) ParseOutput(allowStderr bool) error {
	result, err := a.Result()
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return errors.NewLauncherError("app exited non-zero", nil).
			WithStage("Run")
	}
	if !allowStderr && strings.TrimSpace(result.Stderr) != "" {
		return errors.NewLauncherError("app wrote to stderr", nil).
			WithStage("Run")
	}
	return nil
}

// PromptLayout resolves an optional visualization layout. A single
// candidate is used directly; multiple candidates go through the chooser.
// No candidates, no directory, or a nil chooser leaves the layout unset.
func (a *WorkflowApp) PromptLayout(layoutDir string, choose func(candidates []string) (string, error)) error {
	if a.Layout != "" {
		return nil
	}
	if layoutDir == "" {
		layoutDir = a.LayoutDir
	}
	if layoutDir == "" {
		return nil
	}

	candidates, err := filepath.Glob(filepath.Join(layoutDir, "*.layout"))
	if err != nil {
		return err
	}
	switch {
	case len(candidates) == 0:
		return nil
	case len(candidates) == 1:
		a.Layout = candidates[0]
		return nil
	default:
		if choose == nil {
			return nil
		}
		picked, err := choose(candidates)
		if err != nil {
			return err
		}
		a.Layout = picked
		return nil
	}
}

var _ App = (*WorkflowApp)(nil)
