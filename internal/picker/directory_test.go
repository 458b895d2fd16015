package picker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/logging"
	"github.com/sciops/benchrun/internal/ux"
)

type pickerOwner struct{}

func (pickerOwner) TempDir() string                   { return "" }
func (pickerOwner) SessionDirectory() (string, error) { return "", errors.New("unresolved") }
func (pickerOwner) Log() *logging.Logger              { return logging.NopLogger() }

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

const (
	rigJSON  = `{"rig_name":"bench-01","version":"0.1.0","computer_name":"rig-pc"}`
	taskJSON = `{"name":"foraging","version":"1.2.0"}`
)

// newBoundPicker builds a library with one subject and binds the picker
// to a stub owner and scripted prompter.
func newBoundPicker(t *testing.T, prompter ux.Prompter, overrides Overrides) *DirectoryPicker {
	t.Helper()
	library := t.TempDir()
	if err := os.MkdirAll(filepath.Join(library, subjectDirName, "M001"), 0755); err != nil {
		t.Fatal(err)
	}

	p := NewDirectoryPicker(library, t.TempDir(), overrides, nil)
	p.Hostname = func() (string, error) { return "rig-pc", nil }
	p.Clock = func() time.Time {
		return time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
	}
	if err := p.Bind(pickerOwner{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := p.BindPrompter(prompter); err != nil {
		t.Fatalf("BindPrompter: %v", err)
	}
	return p
}

func TestDirectoryPickerBindOnce(t *testing.T) {
	p := NewDirectoryPicker(t.TempDir(), t.TempDir(), Overrides{}, nil)

	if err := p.Bind(pickerOwner{}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := p.Bind(pickerOwner{}); !errors.Is(err, errors.ErrOwnerBound) {
		t.Errorf("second Bind() error = %v, want ErrOwnerBound", err)
	}

	if err := p.BindPrompter(&ux.Scripted{}); err != nil {
		t.Fatalf("BindPrompter: %v", err)
	}
	if err := p.BindPrompter(&ux.Scripted{}); !errors.Is(err, errors.ErrOwnerBound) {
		t.Errorf("second BindPrompter() error = %v, want ErrOwnerBound", err)
	}
}

func TestDirectoryPickerInitialize(t *testing.T) {
	p := newBoundPicker(t, &ux.Scripted{}, Overrides{})
	if err := p.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	p.LibraryDir = filepath.Join(t.TempDir(), "absent")
	if err := p.Initialize(); err == nil {
		t.Error("Initialize() = nil with missing library dir")
	}

	unbound := NewDirectoryPicker(t.TempDir(), t.TempDir(), Overrides{}, nil)
	if err := unbound.Initialize(); err == nil {
		t.Error("Initialize() = nil on unbound picker")
	}
}

func TestPickRigSingleCandidateAutoSelects(t *testing.T) {
	// No scripted picks: any prompt would fail the test.
	p := newBoundPicker(t, &ux.Scripted{}, Overrides{})
	writeJSON(t, filepath.Join(p.LibraryDir, rigDirName, "rig-pc", "bench-01.json"), rigJSON)

	rig, err := p.PickRig()
	if err != nil {
		t.Fatalf("PickRig: %v", err)
	}
	if rig.RigName != "bench-01" {
		t.Errorf("RigName = %q, want %q", rig.RigName, "bench-01")
	}
}

func TestPickRigMultipleCandidatesPrompts(t *testing.T) {
	p := newBoundPicker(t, &ux.Scripted{Picks: []string{"b.json"}}, Overrides{})
	writeJSON(t, filepath.Join(p.LibraryDir, rigDirName, "rig-pc", "a.json"),
		`{"rig_name":"bench-a","version":"0.1.0","computer_name":"rig-pc"}`)
	writeJSON(t, filepath.Join(p.LibraryDir, rigDirName, "rig-pc", "b.json"),
		`{"rig_name":"bench-b","version":"0.1.0","computer_name":"rig-pc"}`)

	rig, err := p.PickRig()
	if err != nil {
		t.Fatalf("PickRig: %v", err)
	}
	if rig.RigName != "bench-b" {
		t.Errorf("RigName = %q, want %q", rig.RigName, "bench-b")
	}
}

func TestPickRigNoCandidates(t *testing.T) {
	p := newBoundPicker(t, &ux.Scripted{}, Overrides{})

	_, err := p.PickRig()
	if !errors.Is(err, &errors.NotFoundError{}) {
		t.Fatalf("PickRig() error = %v, want NotFoundError", err)
	}
}

func TestPickRigOverrideShortCircuits(t *testing.T) {
	override := filepath.Join(t.TempDir(), "my_rig.json")
	writeJSON(t, override, rigJSON)

	p := newBoundPicker(t, &ux.Scripted{}, Overrides{RigPath: override})
	rig, err := p.PickRig()
	if err != nil {
		t.Fatalf("PickRig: %v", err)
	}
	if rig.RigName != "bench-01" {
		t.Errorf("RigName = %q, want %q", rig.RigName, "bench-01")
	}
}

func TestPickRigInvalidCandidateDroppedThenNotFound(t *testing.T) {
	p := newBoundPicker(t, &ux.Scripted{}, Overrides{})
	writeJSON(t, filepath.Join(p.LibraryDir, rigDirName, "rig-pc", "broken.json"), `{"version":"0.1.0"}`)

	_, err := p.PickRig()
	if !errors.Is(err, &errors.NotFoundError{}) {
		t.Fatalf("PickRig() error = %v, want NotFoundError after dropping invalid candidate", err)
	}
}

func TestPickSessionFromSubjectList(t *testing.T) {
	prompter := &ux.Scripted{
		Picks:        []string{"M001"},
		Experimenter: []string{"j.doe"},
		Notes:        "calm",
	}
	p := newBoundPicker(t, prompter, Overrides{})

	session, err := p.PickSession()
	if err != nil {
		t.Fatalf("PickSession: %v", err)
	}
	if session.Subject != "M001" {
		t.Errorf("Subject = %q, want %q", session.Subject, "M001")
	}
	if session.SessionName != "20260830T103000_M001" {
		t.Errorf("SessionName = %q", session.SessionName)
	}
	if session.Notes != "calm" {
		t.Errorf("Notes = %q, want %q", session.Notes, "calm")
	}
	if len(session.Experimenter) != 1 || session.Experimenter[0] != "j.doe" {
		t.Errorf("Experimenter = %v", session.Experimenter)
	}
}

func TestPickSessionSubjectOverrideSkipsPrompt(t *testing.T) {
	prompter := &ux.Scripted{Experimenter: []string{"j.doe"}}
	p := newBoundPicker(t, prompter, Overrides{Subject: "M777"})

	session, err := p.PickSession()
	if err != nil {
		t.Fatalf("PickSession: %v", err)
	}
	if session.Subject != "M777" {
		t.Errorf("Subject = %q, want %q", session.Subject, "M777")
	}
}

func TestPickTaskLogicSubjectHint(t *testing.T) {
	t.Run("accepted hint uses subject task logic", func(t *testing.T) {
		prompter := &ux.Scripted{
			Picks:        []string{"M001"},
			Confirms:     []bool{true},
			Experimenter: []string{"j.doe"},
		}
		p := newBoundPicker(t, prompter, Overrides{})
		writeJSON(t, filepath.Join(p.LibraryDir, subjectDirName, "M001", subjectTaskFile),
			`{"name":"foraging-m001","version":"2.0.0"}`)

		if _, err := p.PickSession(); err != nil {
			t.Fatalf("PickSession: %v", err)
		}
		task, err := p.PickTaskLogic()
		if err != nil {
			t.Fatalf("PickTaskLogic: %v", err)
		}
		if task.Name != "foraging-m001" {
			t.Errorf("Name = %q, want %q", task.Name, "foraging-m001")
		}
	})

	t.Run("declined hint falls back to shared pool", func(t *testing.T) {
		prompter := &ux.Scripted{
			Picks:        []string{"M001"},
			Confirms:     []bool{false},
			Experimenter: []string{"j.doe"},
		}
		p := newBoundPicker(t, prompter, Overrides{})
		writeJSON(t, filepath.Join(p.LibraryDir, subjectDirName, "M001", subjectTaskFile),
			`{"name":"foraging-m001","version":"2.0.0"}`)
		writeJSON(t, filepath.Join(p.LibraryDir, taskDirName, "shared.json"), taskJSON)

		if _, err := p.PickSession(); err != nil {
			t.Fatalf("PickSession: %v", err)
		}
		task, err := p.PickTaskLogic()
		if err != nil {
			t.Fatalf("PickTaskLogic: %v", err)
		}
		if task.Name != "foraging" {
			t.Errorf("Name = %q, want %q", task.Name, "foraging")
		}
	})
}

func TestPickTaskLogicOverride(t *testing.T) {
	override := filepath.Join(t.TempDir(), "my_task.json")
	writeJSON(t, override, taskJSON)

	p := newBoundPicker(t, &ux.Scripted{}, Overrides{TaskLogicPath: override})
	task, err := p.PickTaskLogic()
	if err != nil {
		t.Fatalf("PickTaskLogic: %v", err)
	}
	if task.Name != "foraging" {
		t.Errorf("Name = %q, want %q", task.Name, "foraging")
	}
}
