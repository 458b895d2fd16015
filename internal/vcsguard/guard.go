// Package vcsguard enforces source-tree consistency before a run. An
// experiment is only reproducible if the code that produced it can be
// recovered, so the guard refuses dirty working trees (submodules
// included) unless the operator explicitly allows or resets them.
package vcsguard

import (
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
)

// PromptFunc asks the operator a yes/no question. It is injected so the
// guard stays independent of the terminal layer.
type PromptFunc func(question string) (bool, error)

// Guard wraps one git repository and its submodules.
type Guard struct {
	repoDir  string
	executor CommandExecutor
	logger   *logging.Logger
}

// NewGuard creates a guard over the repository at repoDir. It fails if
// git is not installed or repoDir is not inside a git working tree.
func NewGuard(repoDir string, logger *logging.Logger) (*Guard, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return nil, errors.NewGitError("git executable not found on PATH", errors.ErrGitNotInstalled)
	}
	return NewGuardWithExecutor(repoDir, NewCLICommandExecutor(), logger)
}

// NewGuardWithExecutor creates a guard with a custom executor.
// This is primarily useful for testing.
func NewGuardWithExecutor(repoDir string, executor CommandExecutor, logger *logging.Logger) (*Guard, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	g := &Guard{repoDir: repoDir, executor: executor, logger: logger}

	if err := executor.RunQuiet(repoDir, "git", "rev-parse", "--is-inside-work-tree"); err != nil {
		return nil, errors.NewGitError("not a git repository", errors.ErrNotGitRepository).
			WithRepository(repoDir)
	}
	return g, nil
}

// Dir returns the repository root directory.
func (g *Guard) Dir() string {
	return g.repoDir
}

// Head returns the full commit hash of HEAD.
func (g *Guard) Head() (string, error) {
	output, err := g.executor.Run(g.repoDir, "git", "rev-parse", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to resolve HEAD", err).
			WithRepository(g.repoDir).
			WithGitOutput(string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// CurrentBranch returns the current branch name, or "HEAD" when detached.
func (g *Guard) CurrentBranch() (string, error) {
	output, err := g.executor.Run(g.repoDir, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", errors.NewGitError("failed to get branch", err).
			WithRepository(g.repoDir).
			WithGitOutput(string(output))
	}
	return strings.TrimSpace(string(output)), nil
}

// isDirtyAt reports whether the working tree at dir has any staged,
// unstaged, or untracked changes.
func (g *Guard) isDirtyAt(dir string) (bool, error) {
	output, err := g.executor.Run(dir, "git", "status", "--porcelain", "--ignore-submodules=none")
	if err != nil {
		return false, errors.NewGitError("failed to check git status", err).
			WithRepository(dir).
			WithGitOutput(string(output))
	}
	return len(strings.TrimSpace(string(output))) > 0, nil
}

// IsDirty reports whether the top-level working tree is dirty,
// ignoring the state inside submodules.
func (g *Guard) IsDirty() (bool, error) {
	return g.isDirtyAt(g.repoDir)
}

// IsDirtyWithSubmodules reports whether the repository or any of its
// submodules has uncommitted changes. A clean top-level tree with a
// dirty submodule counts as dirty.
func (g *Guard) IsDirtyWithSubmodules() (bool, error) {
	dirty, err := g.IsDirty()
	if err != nil || dirty {
		return dirty, err
	}
	if !g.HasSubmodules() {
		return false, nil
	}

	paths, err := g.SubmodulePaths()
	if err != nil {
		return false, err
	}
	for _, path := range paths {
		dirty, err := g.isDirtyAt(filepath.Join(g.repoDir, path))
		if err != nil || dirty {
			return dirty, err
		}
	}
	return false, nil
}

// UncommittedChanges lists the changed and untracked files across the
// repository and all submodules. Submodule entries are prefixed with
// the submodule path.
func (g *Guard) UncommittedChanges() ([]string, error) {
	files, err := g.changedFilesAt(g.repoDir)
	if err != nil {
		return nil, err
	}
	if !g.HasSubmodules() {
		return files, nil
	}

	paths, err := g.SubmodulePaths()
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		subFiles, err := g.changedFilesAt(filepath.Join(g.repoDir, path))
		if err != nil {
			return nil, err
		}
		for _, f := range subFiles {
			files = append(files, filepath.Join(path, f))
		}
	}
	return files, nil
}

// changedFilesAt returns the porcelain status entries of one working
// tree as bare file paths.
func (g *Guard) changedFilesAt(dir string) ([]string, error) {
	output, err := g.executor.Run(dir, "git", "status", "--porcelain", "--ignore-submodules=none")
	if err != nil {
		return nil, errors.NewGitError("failed to list uncommitted changes", err).
			WithRepository(dir).
			WithGitOutput(string(output))
	}

	var files []string
	for _, line := range strings.Split(string(output), "\n") {
		if len(line) < 4 {
			continue
		}
		// Porcelain format: two status columns, a space, then the path.
		files = append(files, strings.TrimSpace(line[3:]))
	}
	return files, nil
}

// FullReset discards all local changes in the repository and its
// submodules: hard reset, clean of untracked files, and a forced
// submodule update back to the recorded commits.
func (g *Guard) FullReset() error {
	steps := [][]string{
		{"reset", "--hard"},
		{"clean", "-fd"},
	}
	for _, args := range steps {
		output, err := g.executor.Run(g.repoDir, "git", args...)
		if err != nil {
			return errors.NewGitError("failed to reset repository", err).
				WithRepository(g.repoDir).
				WithGitOutput(string(output))
		}
	}

	if !g.HasSubmodules() {
		return nil
	}
	submodules, err := g.Submodules()
	if err != nil {
		return err
	}
	if len(submodules) == 0 {
		return nil
	}

	for _, args := range [][]string{
		{"submodule", "sync", "--recursive"},
		{"submodule", "update", "--init", "--recursive", "--force"},
	} {
		output, err := g.executor.Run(g.repoDir, "git", args...)
		if err != nil {
			return errors.NewGitError("failed to reset submodules", err).
				WithRepository(g.repoDir).
				WithGitOutput(string(output))
		}
	}

	// Untracked files inside submodules survive a forced update.
	for _, sm := range submodules {
		if sm.Path == "" {
			continue
		}
		g.logger.Debug("resetting submodule", "name", sm.Name, "path", sm.Path, "url", sm.URL, "branch", sm.Branch)
		dir := filepath.Join(g.repoDir, sm.Path)
		for _, args := range steps {
			output, err := g.executor.Run(dir, "git", args...)
			if err != nil {
				return errors.NewGitError("failed to reset submodule", err).
					WithRepository(dir).
					WithGitOutput(string(output))
			}
		}
	}
	return nil
}

// TryPromptFullReset offers a full reset for a dirty tree. When force
// is true the reset happens without asking. It returns whether a reset
// was performed; declining is not an error.
func (g *Guard) TryPromptFullReset(prompt PromptFunc, force bool) (bool, error) {
	if !force {
		if prompt == nil {
			return false, nil
		}
		ok, err := prompt("Repository has uncommitted changes. Discard them all?")
		if err != nil {
			return false, err
		}
		if !ok {
			g.logger.Warn("operator declined full reset, repository stays dirty", "repository", g.repoDir)
			return false, nil
		}
	}
	if err := g.FullReset(); err != nil {
		return false, err
	}
	g.logger.Info("repository reset to HEAD", "repository", g.repoDir)
	return true, nil
}
