// Package launcher is the run orchestrator: one Launcher instance
// drives one experiment run through a strict, non-resumable lifecycle
// (validate environment, resolve configuration, pre-run, run, post-run,
// dispose), coordinating the service registry, the configuration
// picker, the version-control guard, and the operator prompt layer.
package launcher

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
	"github.com/sciops/benchrun/internal/picker"
	"github.com/sciops/benchrun/internal/schema"
	"github.com/sciops/benchrun/internal/services"
	"github.com/sciops/benchrun/internal/ux"
	"github.com/sciops/benchrun/internal/vcsguard"
)

// State is the launcher's lifecycle position. Transitions are strictly
// forward; a launcher is never reused across runs.
type State int

const (
	StateConstructed State = iota
	StateEnvironmentValidated
	StateConfigurationsResolved
	StatePreRun
	StateRun
	StatePostRun
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateEnvironmentValidated:
		return "environment-validated"
	case StateConfigurationsResolved:
		return "configurations-resolved"
	case StatePreRun:
		return "pre-run"
	case StateRun:
		return "run"
	case StatePostRun:
		return "post-run"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// RunOutcome is the terminal result of one run, returned up the stack
// instead of exiting. The cmd layer translates it to a process exit
// code.
type RunOutcome struct {
	Code int
	Err  error
}

// Ok reports whether the run completed cleanly.
func (o RunOutcome) Ok() bool {
	return o.Code == 0 && o.Err == nil
}

// Settings carries the resolved CLI/config inputs of one run.
type Settings struct {
	DataDir           string
	RepositoryDir     string
	ConfigLibraryDir  string
	TempRoot          string
	VisualizerLayout  string
	LogLevel          string
	Debug             bool
	AllowDirty        bool
	SkipHardwareCheck bool
	CreateDirectories bool
	GroupBySubject    bool
	SkipDataTransfer  bool
	SkipDataMapping   bool
	AllowStderr       bool
}

// Launcher orchestrates one run, generic over the three configuration
// record types.
type Launcher[R, S, T schema.Config] struct {
	settings Settings
	manager  *services.Manager
	picker   picker.Picker[R, S, T]
	prompter ux.Prompter
	logger   *logging.Logger
	guard    *vcsguard.Guard

	tempDir    string
	state      State
	commitHash string
	repoDirty  bool

	rig       R
	session   S
	task      T
	resolved  bool
	persisted bool
}

// Option adjusts a launcher at construction time.
type Option[R, S, T schema.Config] func(*Launcher[R, S, T])

// WithGuard injects a pre-built version-control guard. Without it the
// launcher builds one over Settings.RepositoryDir during validation.
func WithGuard[R, S, T schema.Config](guard *vcsguard.Guard) Option[R, S, T] {
	return func(l *Launcher[R, S, T]) {
		l.guard = guard
	}
}

// WithLogger injects a pre-built logger, mainly for tests.
func WithLogger[R, S, T schema.Config](logger *logging.Logger) Option[R, S, T] {
	return func(l *Launcher[R, S, T]) {
		l.logger = logger
	}
}

// New creates a launcher, provisions its temp workspace, and performs
// the one-shot mutual binding with the service manager and the picker.
func New[R, S, T schema.Config](
	settings Settings,
	manager *services.Manager,
	pick picker.Picker[R, S, T],
	prompter ux.Prompter,
	opts ...Option[R, S, T],
) (*Launcher[R, S, T], error) {
	tempRoot := settings.TempRoot
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}
	tempDir := filepath.Join(tempRoot, "benchrun-"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, errors.NewLauncherError("failed to create temp workspace", err)
	}

	l := &Launcher[R, S, T]{
		settings: settings,
		manager:  manager,
		picker:   pick,
		prompter: prompter,
		tempDir:  tempDir,
		state:    StateConstructed,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		level := settings.LogLevel
		if level == "" {
			level = logging.LevelInfo
		}
		if settings.Debug {
			level = logging.LevelDebug
		}
		logger, err := logging.NewLogger(tempDir, level)
		if err != nil {
			return nil, errors.NewLauncherError("failed to open run log", err)
		}
		l.logger = logger
	}

	if err := manager.RegisterOwner(l); err != nil {
		return nil, err
	}
	if err := pick.Bind(l); err != nil {
		return nil, err
	}
	if err := pick.BindPrompter(prompter); err != nil {
		return nil, err
	}

	if settings.Debug {
		l.logDiagnosis()
	}
	return l, nil
}

// State returns the current lifecycle position.
func (l *Launcher[R, S, T]) State() State {
	return l.state
}

// TempDir returns the run's temp workspace.
func (l *Launcher[R, S, T]) TempDir() string {
	return l.tempDir
}

// Log returns the run logger.
func (l *Launcher[R, S, T]) Log() *logging.Logger {
	return l.logger
}

// Services returns the bound service manager.
func (l *Launcher[R, S, T]) Services() *services.Manager {
	return l.manager
}

// Rig returns the resolved rig record.
func (l *Launcher[R, S, T]) Rig() R { return l.rig }

// Session returns the resolved session record.
func (l *Launcher[R, S, T]) Session() S { return l.session }

// TaskLogic returns the resolved task logic record.
func (l *Launcher[R, S, T]) TaskLogic() T { return l.task }

// SessionDirectory returns the permanent session data directory:
// {data}/{session name}, or {data}/{subject}/{session name} when
// grouping by subject. It errors before configuration resolution.
func (l *Launcher[R, S, T]) SessionDirectory() (string, error) {
	if !l.resolved {
		return "", errors.NewLauncherError("session is not resolved yet", nil).WithStage(l.state.String())
	}

	name := l.session.Describe().Name
	if l.settings.GroupBySubject {
		if subject := subjectOf(l.session); subject != "" {
			return filepath.Join(l.settings.DataDir, subject, name), nil
		}
	}
	return filepath.Join(l.settings.DataDir, name), nil
}

// subjectOf extracts the subject from the standard session record; a
// custom session type without one yields "".
func subjectOf(session any) string {
	if s, ok := session.(schema.SessionConfig); ok {
		return s.Subject
	}
	return ""
}

// logDiagnosis dumps the run environment for debugging.
func (l *Launcher[R, S, T]) logDiagnosis() {
	wd, _ := os.Getwd()
	host, _ := os.Hostname()
	l.logger.Debug("run diagnosis",
		"os", runtime.GOOS,
		"arch", runtime.GOARCH,
		"hostname", host,
		"working_dir", wd,
		"temp_dir", l.tempDir,
		"data_dir", l.settings.DataDir,
		"repository_dir", l.settings.RepositoryDir,
		"config_library_dir", l.settings.ConfigLibraryDir,
	)
}

var _ services.Owner = (*Launcher[schema.RigConfig, schema.SessionConfig, schema.TaskLogicConfig])(nil)

// Default is the standard launcher instantiation over the three stock
// configuration records.
type Default = Launcher[schema.RigConfig, schema.SessionConfig, schema.TaskLogicConfig]
