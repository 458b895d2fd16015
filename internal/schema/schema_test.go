package schema

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func sampleSession() SessionConfig {
	return SessionConfig{
		SessionName:       "m-042_2026-01-15T10-30-00",
		Subject:           "m-042",
		Experimenter:      []string{"j.doe"},
		RootPath:          "/data/behavior",
		Date:              time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC),
		Notes:             "baseline",
		CommitHash:        "abc123",
		Experiment:        "gng",
		ExperimentVersion: "1.2.0",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid rig", RigConfig{RigName: "rig-1", Version: "0.1.0", ComputerName: "behav-01"}, false},
		{"rig missing name", RigConfig{ComputerName: "behav-01"}, true},
		{"rig missing computer", RigConfig{RigName: "rig-1"}, true},
		{"valid session", sampleSession(), false},
		{"session missing subject", SessionConfig{RootPath: "/data", Date: time.Now()}, true},
		{"session missing root", SessionConfig{Subject: "m-042", Date: time.Now()}, true},
		{"session zero date", SessionConfig{Subject: "m-042", RootPath: "/data"}, true},
		{"valid task", TaskLogicConfig{Name: "gng", Version: "1.2.0"}, false},
		{"task missing version", TaskLogicConfig{Name: "gng"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{RigConfig{}, "RigConfig"},
		{SessionConfig{}, "SessionConfig"},
		{TaskLogicConfig{}, "TaskLogicConfig"},
	}

	for _, tt := range tests {
		if got := TypeName(tt.cfg); got != tt.want {
			t.Errorf("TypeName(%T) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestSave_FileNameAndFormat(t *testing.T) {
	dir := t.TempDir()

	path, err := Save(sampleSession(), dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if filepath.Base(path) != "SessionConfig.json" {
		t.Errorf("file name = %q, want %q", filepath.Base(path), "SessionConfig.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written file: %v", err)
	}
	// Pretty indentation is part of the on-disk contract.
	if !strings.Contains(string(data), "\n  \"subject\"") {
		t.Errorf("output is not pretty-printed:\n%s", data)
	}
}

func TestSave_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "workspace")

	if _, err := Save(RigConfig{RigName: "rig-1", ComputerName: "behav-01"}, dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "RigConfig.json")); err != nil {
		t.Errorf("expected RigConfig.json in created directory: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := sampleSession()

	path, err := Save(original, dir)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := FromJSONFile[SessionConfig](path)
	if err != nil {
		t.Fatalf("FromJSONFile failed: %v", err)
	}

	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Errorf("round-trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestFromJSONFile_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TaskLogicConfig.json")

	// Missing required version field.
	if err := os.WriteFile(path, []byte(`{"name": "gng"}`), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := FromJSONFile[TaskLogicConfig](path); err == nil {
		t.Error("FromJSONFile accepted a record that fails validation")
	}
}

func TestFromJSONFile_MissingFile(t *testing.T) {
	if _, err := FromJSONFile[RigConfig](filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("FromJSONFile succeeded on a missing file")
	}
}
