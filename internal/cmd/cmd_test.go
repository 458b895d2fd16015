package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/sciops/benchrun/internal/config"
)

// executeCommand runs a cobra command with args and returns captured output.
func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "benchrun" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "benchrun")
	}

	expected := []string{"run", "config"}
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range expected {
		if !names[want] {
			t.Errorf("missing subcommand %q", want)
		}
	}
}

func TestRunFlagsCoverConfigKeys(t *testing.T) {
	flags := runCmd.Flags()
	for flag, key := range flagBindings {
		if flags.Lookup(flag) == nil {
			t.Errorf("flag %q bound to %q is not declared", flag, key)
		}
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCommand(rootCmd, "config", "path", "--config-dir", dir)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if !strings.Contains(out, filepath.Join(dir, config.FileName)) {
		t.Errorf("output missing %s:\n%s", config.FileName, out)
	}
	if !strings.Contains(out, filepath.Join(dir, config.LocalFileName)) {
		t.Errorf("output missing %s:\n%s", config.LocalFileName, out)
	}
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCommand(rootCmd, "config", "init", "--config-dir", dir)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	path := filepath.Join(dir, config.FileName)
	if !strings.Contains(out, path) {
		t.Errorf("output does not name the written file:\n%s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading written config: %v", err)
	}
	for _, section := range []string{"directories:", "run:", "app:", "transfer:", "logging:"} {
		if !strings.Contains(string(data), section) {
			t.Errorf("written config missing section %q", section)
		}
	}

	// A second init must refuse to clobber the file.
	if _, err := executeCommand(rootCmd, "config", "init", "--config-dir", dir); err == nil {
		t.Error("second config init did not fail")
	}
}

func TestConfigShowDefaults(t *testing.T) {
	dir := t.TempDir()

	out, err := executeCommand(rootCmd, "config", "show", "--config-dir", dir)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	defaults := config.Default()
	if !strings.Contains(out, "data: "+defaults.Directories.Data) {
		t.Errorf("show missing default data dir:\n%s", out)
	}
	if !strings.Contains(out, "level: "+defaults.Logging.Level) {
		t.Errorf("show missing default log level:\n%s", out)
	}
}
