package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}
	if cfg.Directories.Data != "data" {
		t.Errorf("Directories.Data = %q, want %q", cfg.Directories.Data, "data")
	}
	if cfg.Directories.ConfigLibrary != "config-library" {
		t.Errorf("Directories.ConfigLibrary = %q, want %q", cfg.Directories.ConfigLibrary, "config-library")
	}
	if cfg.Transfer.MinFreeBytes != 2e11 {
		t.Errorf("Transfer.MinFreeBytes = %d, want 2e11", cfg.Transfer.MinFreeBytes)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Run.AllowDirty {
		t.Error("Run.AllowDirty should be false by default")
	}
	if cfg.App.AllowStderr {
		t.Error("App.AllowStderr should be false by default")
	}
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	if err := Setup(v, t.TempDir()); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Directories.Data != "data" {
		t.Errorf("Directories.Data = %q, want %q", cfg.Directories.Data, "data")
	}
}

func TestLoadMergesConfigFile(t *testing.T) {
	dir := t.TempDir()
	content := "directories:\n  data: /mnt/benchdata\nrun:\n  group_by_subject: true\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := Setup(v, dir); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Directories.Data != "/mnt/benchdata" {
		t.Errorf("Directories.Data = %q, want %q", cfg.Directories.Data, "/mnt/benchdata")
	}
	if !cfg.Run.GroupBySubject {
		t.Error("Run.GroupBySubject not merged from file")
	}
	// Untouched keys keep their defaults.
	if cfg.Directories.ConfigLibrary != "config-library" {
		t.Errorf("Directories.ConfigLibrary = %q, want default", cfg.Directories.ConfigLibrary)
	}
}

func TestLocalFileOverridesBase(t *testing.T) {
	dir := t.TempDir()
	base := "run:\n  subject: M001\n  allow_dirty: false\n"
	local := "run:\n  subject: M002\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(base), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, LocalFileName), []byte(local), 0644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	if err := Setup(v, dir); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Subject != "M002" {
		t.Errorf("Run.Subject = %q, want local override %q", cfg.Run.Subject, "M002")
	}
	if cfg.Run.AllowDirty {
		t.Error("Run.AllowDirty changed by local file that does not set it")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	base := "run:\n  subject: M001\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(base), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BENCHRUN_RUN_SUBJECT", "M999")

	v := viper.New()
	if err := Setup(v, dir); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Subject != "M999" {
		t.Errorf("Run.Subject = %q, want env override %q", cfg.Run.Subject, "M999")
	}
}

func TestFlagBindingOverridesEnv(t *testing.T) {
	t.Setenv("BENCHRUN_RUN_SUBJECT", "M999")

	v := viper.New()
	if err := Setup(v, t.TempDir()); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	// Simulates an explicit CLI flag bound by the cmd layer.
	v.Set("run.subject", "M123")

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Run.Subject != "M123" {
		t.Errorf("Run.Subject = %q, want flag override %q", cfg.Run.Subject, "M123")
	}
}
