package transfer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sciops/benchrun/internal/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCopyServiceMirrorsTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "session")

	writeFile(t, filepath.Join(src, "session.json"), `{"subject":"M001"}`)
	writeFile(t, filepath.Join(src, "behavior", "trials.csv"), "trial,outcome\n1,hit\n")

	svc := NewCopyService(src, dst, nil)
	if err := svc.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, rel := range []string{"session.json", filepath.Join("behavior", "trials.csv")} {
		want, err := os.ReadFile(filepath.Join(src, rel))
		if err != nil {
			t.Fatalf("read source %s: %v", rel, err)
		}
		got, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Fatalf("read destination %s: %v", rel, err)
		}
		if string(got) != string(want) {
			t.Errorf("%s: got %q, want %q", rel, got, want)
		}
	}
}

func TestCopyServiceOverwritesExisting(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	writeFile(t, filepath.Join(src, "notes.txt"), "new")
	writeFile(t, filepath.Join(dst, "notes.txt"), "old")
	writeFile(t, filepath.Join(dst, "keep.txt"), "kept")

	svc := NewCopyService(src, dst, nil)
	if err := svc.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	got, _ := os.ReadFile(filepath.Join(dst, "notes.txt"))
	if string(got) != "new" {
		t.Errorf("notes.txt = %q, want %q", got, "new")
	}
	kept, err := os.ReadFile(filepath.Join(dst, "keep.txt"))
	if err != nil || string(kept) != "kept" {
		t.Errorf("keep.txt = %q, %v; want untouched", kept, err)
	}
}

func TestCopyServiceValidate(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		destination string
		wantErr     bool
	}{
		{"valid", t.TempDir(), t.TempDir(), false},
		{"missing source", filepath.Join(t.TempDir(), "absent"), t.TempDir(), true},
		{"empty destination", t.TempDir(), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCopyService(tt.source, tt.destination, nil).Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, &errors.ValidationError{}) {
				t.Errorf("Validate() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestWatchdogServiceWritesManifest(t *testing.T) {
	manifestDir := t.TempDir()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "session.json"), "{}")

	svc := NewWatchdogService(manifestDir, src, "/remote/archive", nil)
	svc.Project = "foraging"
	svc.ExtraInfo = map[string]string{"rig": "bench-01"}
	svc.ForceCloudSync = true

	if err := svc.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	path := filepath.Join(manifestDir, "manifest_"+filepath.Base(src)+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if m.Source != src {
		t.Errorf("Source = %q, want %q", m.Source, src)
	}
	if m.Destination != "/remote/archive" {
		t.Errorf("Destination = %q, want %q", m.Destination, "/remote/archive")
	}
	if m.Project != "foraging" {
		t.Errorf("Project = %q, want %q", m.Project, "foraging")
	}
	if m.ExtraInfo["rig"] != "bench-01" {
		t.Errorf("ExtraInfo = %v, want rig=bench-01", m.ExtraInfo)
	}
	if !m.ForceCloudSync {
		t.Error("ForceCloudSync = false, want true")
	}
}

func TestWatchdogServiceWaitsForPickup(t *testing.T) {
	manifestDir := t.TempDir()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "session.json"), "{}")

	svc := NewWatchdogService(manifestDir, src, "/remote/archive", nil)
	svc.PickupTimeout = 5 * time.Second

	path := filepath.Join(manifestDir, "manifest_"+filepath.Base(src)+".json")
	go func() {
		// Simulated daemon: consume the manifest once it appears.
		for i := 0; i < 100; i++ {
			if _, err := os.Stat(path); err == nil {
				_ = os.Remove(path)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}()

	if err := svc.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestWatchdogServicePickupTimeout(t *testing.T) {
	manifestDir := t.TempDir()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "session.json"), "{}")

	svc := NewWatchdogService(manifestDir, src, "/remote/archive", nil)
	svc.PickupTimeout = 100 * time.Millisecond

	err := svc.Run()
	if !errors.Is(err, errors.ErrTimeout) {
		t.Fatalf("Run() error = %v, want ErrTimeout", err)
	}
	// The manifest stays queued for a late daemon.
	path := filepath.Join(manifestDir, "manifest_"+filepath.Base(src)+".json")
	if _, statErr := os.Stat(path); statErr != nil {
		t.Errorf("manifest removed after timeout: %v", statErr)
	}
}

func TestWatchdogServiceValidateMissingManifestDir(t *testing.T) {
	src := t.TempDir()
	svc := NewWatchdogService(filepath.Join(t.TempDir(), "absent"), src, "/remote", nil)
	if err := svc.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing manifest directory")
	}
}
