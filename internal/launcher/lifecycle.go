package launcher

import (
	"context"
	"os"
	"path/filepath"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
	"github.com/sciops/benchrun/internal/schema"
	"github.com/sciops/benchrun/internal/transfer"
	"github.com/sciops/benchrun/internal/vcsguard"
)

// advance moves the lifecycle forward or fails on an out-of-order call.
func (l *Launcher[R, S, T]) advance(from, to State) error {
	if l.state != from {
		return errors.NewLauncherError("lifecycle called out of order", nil).
			WithStage(l.state.String())
	}
	l.state = to
	return nil
}

// Execute drives the full lifecycle and always disposes, converting
// every failure into a RunOutcome instead of exiting or panicking.
func (l *Launcher[R, S, T]) Execute(ctx context.Context) RunOutcome {
	outcome := l.run(ctx)
	return l.Dispose(outcome)
}

func (l *Launcher[R, S, T]) run(ctx context.Context) RunOutcome {
	type stage struct {
		name string
		fn   func(context.Context) error
	}
	stages := []stage{
		{"validate", func(context.Context) error { return l.Validate() }},
		{"resolve", func(context.Context) error { return l.ResolveConfigurations() }},
		{"pre-run", func(context.Context) error { return l.PreRun() }},
		{"run", l.Run},
		{"post-run", func(context.Context) error { return l.PostRun() }},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			l.logger.Warn("run interrupted", "stage", s.name)
			return RunOutcome{Code: 1, Err: errors.ErrInterrupted}
		}
		if err := s.fn(ctx); err != nil {
			l.logger.Error("stage failed", "stage", s.name, "error", err)
			return RunOutcome{Code: 1, Err: err}
		}
	}
	return RunOutcome{}
}

// Validate checks the environment: directories, repository cleanliness,
// required services, and resource constraints. Any failure here is
// fatal to the run.
func (l *Launcher[R, S, T]) Validate() error {
	if err := l.advance(StateConstructed, StateEnvironmentValidated); err != nil {
		return err
	}

	if err := l.validateDirectories(); err != nil {
		return err
	}
	if err := l.validateRepository(); err != nil {
		return err
	}
	if err := l.validateServices(); err != nil {
		return err
	}

	l.logger.Info("environment validated")
	return nil
}

func (l *Launcher[R, S, T]) validateDirectories() error {
	dirs := []string{l.settings.ConfigLibraryDir, l.settings.DataDir}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		if !l.settings.CreateDirectories {
			return errors.NewLauncherError("required directory does not exist: "+dir, errors.ErrValidationFailed).
				WithStage("validate")
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.NewLauncherError("failed to create directory "+dir, err).WithStage("validate")
		}
		l.logger.Info("created missing directory", "dir", dir)
	}
	return nil
}

// validateRepository enforces source-tree consistency. A dirty tree is
// either reset (with operator consent), tolerated when allow-dirty is
// set, or fatal.
func (l *Launcher[R, S, T]) validateRepository() error {
	if l.guard == nil {
		if l.settings.RepositoryDir == "" {
			l.logger.Debug("no repository configured, skipping consistency check")
			return nil
		}
		guard, err := vcsguard.NewGuard(l.settings.RepositoryDir, l.logger)
		if err != nil {
			return err
		}
		l.guard = guard
	}

	dirty, err := l.guard.IsDirtyWithSubmodules()
	if err != nil {
		return err
	}

	if dirty && !l.settings.AllowDirty {
		files, err := l.guard.UncommittedChanges()
		if err != nil {
			return err
		}
		l.logger.Warn("repository has uncommitted changes", "files", files)

		reset, err := l.guard.TryPromptFullReset(l.prompter.Confirm, false)
		if err != nil {
			return err
		}
		if !reset {
			return errors.NewGitError("repository is dirty and the operator declined a reset", errors.ErrDirtyRepository).
				WithRepository(l.guard.Dir())
		}
		dirty = false
	}

	if dirty {
		l.logger.Warn("running with a dirty repository", "repository", l.guard.Dir())
	}
	l.repoDirty = dirty

	head, err := l.guard.Head()
	if err != nil {
		return err
	}
	l.commitHash = head

	branch, err := l.guard.CurrentBranch()
	if err != nil {
		return err
	}
	l.logger.Info("repository validated", "commit", head, "branch", branch, "dirty", dirty)
	return nil
}

// validateServices builds and validates the app adapter, then any
// optional services that are registered. Absent optional services are
// only noted.
func (l *Launcher[R, S, T]) validateServices() error {
	app, err := l.manager.App()
	if err != nil {
		return err
	}
	if err := app.Validate(); err != nil {
		return errors.NewServiceError("app adapter failed validation", err)
	}

	monitor, err := l.manager.ResourceMonitor()
	if err != nil {
		return err
	}
	if monitor == nil {
		l.logger.Warn("no resource monitor registered")
	} else if err := monitor.Validate(); err != nil {
		return err
	}

	// The data mapper and transfer services are built and validated in
	// PostRun: their constructors usually derive paths from the session
	// directory, which does not exist until configuration resolution.
	return nil
}

// ResolveConfigurations invokes the picker in fixed order: session,
// then task logic (subject-hinted), then rig.
func (l *Launcher[R, S, T]) ResolveConfigurations() error {
	if err := l.advance(StateEnvironmentValidated, StateConfigurationsResolved); err != nil {
		return err
	}

	if err := l.picker.Initialize(); err != nil {
		return err
	}

	session, err := l.picker.PickSession()
	if err != nil {
		return err
	}
	l.session = session

	task, err := l.picker.PickTaskLogic()
	if err != nil {
		return err
	}
	l.task = task

	rig, err := l.picker.PickRig()
	if err != nil {
		return err
	}
	l.rig = rig

	if err := l.picker.Finalize(); err != nil {
		return err
	}

	l.resolved = true
	l.logger.Info("configurations resolved",
		"session", l.session.Describe().Name,
		"task", l.task.Describe().Name,
		"rig", l.rig.Describe().Name,
	)
	return nil
}

// PreRun back-fills session provenance and resolves the optional
// visualizer layout. Nothing here is irreversible.
func (l *Launcher[R, S, T]) PreRun() error {
	if err := l.advance(StateConfigurationsResolved, StatePreRun); err != nil {
		return err
	}

	if session, ok := any(&l.session).(*schema.SessionConfig); ok {
		desc := l.task.Describe()
		session.Experiment = desc.Name
		session.ExperimentVersion = desc.Version
		session.CommitHash = l.commitHash
		session.AllowDirtyRepo = l.repoDirty
		session.SkipHardwareValidation = l.settings.SkipHardwareCheck
	}

	if l.settings.VisualizerLayout != "" {
		app, err := l.manager.App()
		if err != nil {
			return err
		}
		if err := app.PromptLayout(l.settings.VisualizerLayout, func(layouts []string) (string, error) {
			return l.prompter.PickFromList("Select a visualizer layout", layouts)
		}); err != nil {
			return err
		}
	}

	return nil
}

// Run serializes the three configuration records into the temp
// workspace, hands their paths to the app adapter, and executes it to
// completion. An app failure is fatal but controlled.
func (l *Launcher[R, S, T]) Run(ctx context.Context) error {
	if err := l.advance(StatePreRun, StateRun); err != nil {
		return err
	}

	paths := make(map[string]string, 3)
	for key, cfg := range map[string]schema.Config{
		"RigPath":       l.rig,
		"SessionPath":   l.session,
		"TaskLogicPath": l.task,
	} {
		path, err := schema.Save(cfg, l.tempDir)
		if err != nil {
			return errors.NewLauncherError("failed to persist configuration", err).WithStage("run")
		}
		paths[key] = path
	}

	app, err := l.manager.App()
	if err != nil {
		return err
	}
	app.AddSettings(paths)

	l.logger.Info("starting app", "settings", paths)
	if _, err := app.Run(ctx); err != nil {
		return errors.NewLauncherError("app failed to run", err).WithStage("run")
	}
	if err := app.ParseOutput(l.settings.AllowStderr); err != nil {
		return err
	}

	l.logger.Info("app finished")
	return nil
}

// PostRun maps the session data, persists the temp workspace next to
// it, and transfers it, in that order, so the transfer ships the
// configs and the complete run log. Every step is guarded
// independently: a failing optional service is logged and never blocks
// the others or disposal.
func (l *Launcher[R, S, T]) PostRun() error {
	if err := l.advance(StateRun, StatePostRun); err != nil {
		return err
	}

	if !l.settings.SkipDataMapping {
		l.tryMap()
	}
	l.persistWorkspace()
	if !l.settings.SkipDataTransfer {
		l.tryTransfer()
	}
	return nil
}

func (l *Launcher[R, S, T]) tryMap() {
	mapper, err := l.manager.DataMapper()
	if err != nil {
		l.logger.Error("data mapper unavailable", "error", err)
		return
	}
	if mapper == nil {
		l.logger.Warn("no data mapper registered")
		return
	}
	if err := mapper.Validate(); err != nil {
		l.logger.Error("data mapper failed validation", "error", err)
		return
	}
	if _, err := mapper.Map(); err != nil {
		l.logger.Error("data mapping failed", "error", err)
		return
	}
	l.logger.Info("session data mapped")
}

func (l *Launcher[R, S, T]) tryTransfer() {
	svc, err := l.manager.DataTransfer()
	if err != nil {
		l.logger.Error("data transfer unavailable", "error", err)
		return
	}
	if svc == nil {
		l.logger.Warn("no data transfer registered")
		return
	}
	if err := svc.Validate(); err != nil {
		l.logger.Error("data transfer validation failed", "error", err)
		return
	}
	if err := svc.Run(); err != nil {
		l.logger.Error("data transfer failed", "error", err)
		return
	}
	l.logger.Info("session data transferred")
}

// persistWorkspace closes the run log and mirrors the temp workspace
// into {session dir}/launcher. It runs at most once; disposal calls it
// again only for runs that failed before PostRun.
func (l *Launcher[R, S, T]) persistWorkspace() {
	if l.persisted || !l.resolved {
		return
	}
	l.persisted = true

	dir, err := l.SessionDirectory()
	if err != nil {
		return
	}

	l.logger.Info("persisting run workspace", "workspace", l.tempDir, "destination", filepath.Join(dir, "launcher"))
	_ = l.logger.Close()

	mirror := transfer.NewCopyService(l.tempDir, filepath.Join(dir, "launcher"), nil)
	if err := mirror.Run(); err != nil {
		// The run log is already closed; report the failure on stderr so
		// it is not lost.
		if fallback, lerr := logging.NewLogger("", logging.LevelError); lerr == nil {
			fallback.Error("failed to persist run workspace", "error", err, "workspace", l.tempDir)
		}
		return
	}
	_ = os.RemoveAll(l.tempDir)
}

// Dispose flushes the log, persists the temp workspace next to the
// session data when a clean run has not done so already, and returns
// the accumulated outcome. Dispose is safe to call regardless of how
// far the lifecycle got.
func (l *Launcher[R, S, T]) Dispose(outcome RunOutcome) RunOutcome {
	if l.state == StateDisposed {
		return outcome
	}

	if outcome.Err != nil {
		// A run that failed after the app ran still skips the transfer
		// step; the workspace copy keeps its logs recoverable.
		l.logger.Error("run failed", "error", outcome.Err)
	}

	l.persistWorkspace()
	_ = l.logger.Close()

	l.state = StateDisposed
	return outcome
}
