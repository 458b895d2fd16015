package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in temp directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		logPath := filepath.Join(dir, LogFileName)
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("writes to stderr when tempDir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.file != nil {
			t.Error("expected file to be nil when tempDir is empty")
		}
	})

	t.Run("creates missing temp directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "workspace")

		logger, err := NewLogger(dir, LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("temp directory was not created at %s", dir)
		}
	})
}

func TestLogger_WritesJSON(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("run started", "subject", "m-042")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	line := strings.TrimSpace(string(data))
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v\n%s", err, line)
	}
	if entry["msg"] != "run started" {
		t.Errorf("msg = %v, want %q", entry["msg"], "run started")
	}
	if entry["subject"] != "m-042" {
		t.Errorf("subject = %v, want %q", entry["subject"], "m-042")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelError)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Debug("dropped")
	logger.Info("dropped too")
	logger.Error("kept")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	content := string(data)
	if strings.Contains(content, "dropped") {
		t.Errorf("log contains filtered messages:\n%s", content)
	}
	if !strings.Contains(content, "kept") {
		t.Errorf("log missing ERROR message:\n%s", content)
	}
}

func TestLogger_PersistentAttributes(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	child := logger.WithSubject("m-042").WithStage("Run")
	child.Info("launching app")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry); err != nil {
		t.Fatalf("log line is not valid JSON: %v", err)
	}
	if entry["subject"] != "m-042" {
		t.Errorf("subject = %v, want %q", entry["subject"], "m-042")
	}
	if entry["stage"] != "Run" {
		t.Errorf("stage = %v, want %q", entry["stage"], "Run")
	}
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()

	// Must not panic and must be closeable.
	logger.Info("discarded")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestParseLevelCaseInsensitive(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"ERROR", LevelError},
		{"bogus", LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level); got != parseLevel(tt.want) {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, parseLevel(tt.want))
		}
	}
}

func TestLogger_LowercaseDebugLevel(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, "debug")
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("environment diagnosis")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}
	if !strings.Contains(string(data), "environment diagnosis") {
		t.Errorf("debug entry missing from log opened with lowercase level:\n%s", data)
	}
}
