package picker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
	"github.com/sciops/benchrun/internal/schema"
	"github.com/sciops/benchrun/internal/services"
	"github.com/sciops/benchrun/internal/ux"
)

// Config-library layout under the library root.
const (
	rigDirName     = "Rig"
	subjectDirName = "Subjects"
	taskDirName    = "TaskLogic"

	// subjectTaskFile is the per-subject task logic offered first when
	// the subject has one on file.
	subjectTaskFile = "task_logic.json"
)

// maxPickAttempts bounds retries over invalid candidate files before a
// pick gives up.
const maxPickAttempts = 3

// Overrides short-circuit prompting: a supplied value is returned
// unchanged by the corresponding pick.
type Overrides struct {
	Subject       string
	RigPath       string
	TaskLogicPath string
}

// DirectoryPicker resolves configuration records from a config-library
// directory tree:
//
//	{library}/Rig/{hostname}/*.json
//	{library}/Subjects/{subject}/
//	{library}/TaskLogic/*.json
type DirectoryPicker struct {
	LibraryDir string
	DataDir    string
	Overrides  Overrides

	// Hostname and Clock are injectable for tests.
	Hostname func() (string, error)
	Clock    func() time.Time

	owner    services.Owner
	prompter ux.Prompter
	logger   *logging.Logger

	// subject is resolved during PickSession and hints PickTaskLogic.
	subject string
}

// NewDirectoryPicker creates a picker over the given config library.
func NewDirectoryPicker(libraryDir, dataDir string, overrides Overrides, logger *logging.Logger) *DirectoryPicker {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &DirectoryPicker{
		LibraryDir: libraryDir,
		DataDir:    dataDir,
		Overrides:  overrides,
		Hostname:   os.Hostname,
		Clock:      time.Now,
		logger:     logger,
	}
}

// Bind attaches the owning launcher. Exactly one bind is allowed.
func (p *DirectoryPicker) Bind(owner services.Owner) error {
	if p.owner != nil {
		return errors.NewPickerError("picker already bound to a launcher", errors.ErrOwnerBound)
	}
	p.owner = owner
	return nil
}

// BindPrompter attaches the prompt backend. Exactly one bind is allowed.
func (p *DirectoryPicker) BindPrompter(prompter ux.Prompter) error {
	if p.prompter != nil {
		return errors.NewPickerError("picker already bound to a prompter", errors.ErrOwnerBound)
	}
	p.prompter = prompter
	return nil
}

// Initialize checks the bindings and the config-library layout.
func (p *DirectoryPicker) Initialize() error {
	if p.owner == nil {
		return errors.NewPickerError("picker is not bound to a launcher", nil)
	}
	if p.prompter == nil {
		return errors.NewPickerError("picker is not bound to a prompter", nil)
	}
	info, err := os.Stat(p.LibraryDir)
	if err != nil || !info.IsDir() {
		return errors.NewPickerError("config library directory not found", err).
			WithDirectory(p.LibraryDir)
	}
	return nil
}

// PickSession resolves the subject and builds the session record from
// operator input. The resolved subject is remembered for
// PickTaskLogic.
func (p *DirectoryPicker) PickSession() (schema.SessionConfig, error) {
	subject, err := p.pickSubject()
	if err != nil {
		return schema.SessionConfig{}, err
	}
	p.subject = subject

	experimenter, err := p.prompter.PromptExperimenter()
	if err != nil {
		return schema.SessionConfig{}, err
	}
	notes, err := p.prompter.PromptNotes()
	if err != nil {
		return schema.SessionConfig{}, err
	}

	now := p.Clock()
	session := schema.SessionConfig{
		SessionName:  now.Format("20060102T150405") + "_" + subject,
		Subject:      subject,
		Experimenter: experimenter,
		RootPath:     p.DataDir,
		Date:         now,
		Notes:        notes,
	}
	if err := session.Validate(); err != nil {
		return schema.SessionConfig{}, err
	}
	return session, nil
}

// pickSubject returns the override subject or prompts over the
// Subjects/ directory entries.
func (p *DirectoryPicker) pickSubject() (string, error) {
	if p.Overrides.Subject != "" {
		return p.Overrides.Subject, nil
	}

	subjects, err := listSubdirs(filepath.Join(p.LibraryDir, subjectDirName))
	if err != nil {
		return "", errors.NewPickerError("failed to list subjects", err).
			WithDirectory(filepath.Join(p.LibraryDir, subjectDirName))
	}
	if len(subjects) == 0 {
		return "", errors.NewNotFoundError("subject", "any")
	}
	return p.prompter.PickFromList("Select a subject", subjects)
}

// PickTaskLogic resolves the task record. An override path wins; next
// the chosen subject's own task logic is offered; finally the shared
// TaskLogic/ pool is prompted over.
func (p *DirectoryPicker) PickTaskLogic() (schema.TaskLogicConfig, error) {
	if p.Overrides.TaskLogicPath != "" {
		return schema.FromJSONFile[schema.TaskLogicConfig](p.Overrides.TaskLogicPath)
	}

	if p.subject != "" {
		hinted := filepath.Join(p.LibraryDir, subjectDirName, p.subject, subjectTaskFile)
		if _, err := os.Stat(hinted); err == nil {
			use, err := p.prompter.Confirm("Use " + p.subject + "'s own task logic?")
			if err != nil {
				return schema.TaskLogicConfig{}, err
			}
			if use {
				task, err := schema.FromJSONFile[schema.TaskLogicConfig](hinted)
				if err == nil {
					return task, nil
				}
				p.logger.Warn("subject task logic is invalid, falling back to shared pool",
					"path", hinted, "error", err)
			}
		}
	}

	return pickFromPool[schema.TaskLogicConfig](p, filepath.Join(p.LibraryDir, taskDirName), "task logic")
}

// PickRig resolves the rig record from the host's rig directory. A
// single candidate is selected without prompting.
func (p *DirectoryPicker) PickRig() (schema.RigConfig, error) {
	if p.Overrides.RigPath != "" {
		return schema.FromJSONFile[schema.RigConfig](p.Overrides.RigPath)
	}

	host, err := p.Hostname()
	if err != nil {
		return schema.RigConfig{}, errors.NewPickerError("failed to resolve hostname", err)
	}
	return pickFromPool[schema.RigConfig](p, filepath.Join(p.LibraryDir, rigDirName, host), "rig")
}

// Finalize runs after all three picks succeeded.
func (p *DirectoryPicker) Finalize() error {
	p.logger.Info("configuration resolved", "subject", p.subject)
	return nil
}

// pickFromPool resolves one record from a directory of JSON candidates.
// One candidate is auto-selected; several are prompted over. An invalid
// choice drops the candidate and retries, bounded by maxPickAttempts;
// exhaustion is a typed not-found error.
func pickFromPool[T schema.Config](p *DirectoryPicker, dir, kind string) (T, error) {
	var zero T

	candidates, err := listJSONFiles(dir)
	if err != nil {
		return zero, errors.NewPickerError("failed to list "+kind+" candidates", err).
			WithDirectory(dir)
	}

	for attempt := 0; attempt < maxPickAttempts && len(candidates) > 0; attempt++ {
		var choice string
		if len(candidates) == 1 {
			choice = candidates[0]
		} else {
			choice, err = p.prompter.PickFromList("Select a "+kind, candidates)
			if err != nil {
				return zero, err
			}
		}

		cfg, err := schema.FromJSONFile[T](filepath.Join(dir, choice))
		if err == nil {
			return cfg, nil
		}
		p.logger.Warn("candidate rejected", "kind", kind, "file", choice, "error", err)
		candidates = remove(candidates, choice)
	}

	return zero, errors.NewNotFoundError(kind, dir)
}

// listSubdirs returns the sorted names of dir's subdirectories.
func listSubdirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// listJSONFiles returns the sorted base names of dir's .json files.
func listJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func remove(list []string, item string) []string {
	out := list[:0]
	for _, v := range list {
		if v != item {
			out = append(out, v)
		}
	}
	return out
}

var _ DefaultPicker = (*DirectoryPicker)(nil)
