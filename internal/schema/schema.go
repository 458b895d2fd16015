// Package schema defines the three validated configuration records that
// parameterize one experiment run: the rig (hardware topology), the session
// (concrete run instance), and the task logic (protocol parameters).
//
// Exactly one instance of each exists before the run hook executes. All
// three are immutable after the run hook starts, except the experiment
// name and version, which are back-filled from the task into the session
// during pre-run.
package schema

import (
	"strings"
	"time"

	"github.com/sciops/benchrun/internal/errors"
)

// Descriptor identifies a configuration record by name and version.
type Descriptor struct {
	Name    string
	Version string
}

// Config is the capability shared by the three configuration record types.
// The launcher is generic over three type parameters bound to this
// interface.
type Config interface {
	// Describe returns the record's name and schema version.
	Describe() Descriptor
	// Validate checks the record's required fields.
	Validate() error
}

// RigConfig describes the hardware topology of one rig: which computer
// it runs on and where its peripherals live. Field sets beyond what the
// launcher itself needs are carried opaquely in Extras.
type RigConfig struct {
	RigName       string            `json:"rig_name"`
	Version       string            `json:"version"`
	ComputerName  string            `json:"computer_name"`
	CalibrationID string            `json:"calibration_id,omitempty"`
	Extras        map[string]string `json:"extras,omitempty"`
}

// Describe returns the rig's descriptor.
func (r RigConfig) Describe() Descriptor {
	return Descriptor{Name: r.RigName, Version: r.Version}
}

// Validate checks the rig's required fields.
func (r RigConfig) Validate() error {
	if strings.TrimSpace(r.RigName) == "" {
		return errors.NewValidationError("rig name is required", nil).WithField("rig_name")
	}
	if strings.TrimSpace(r.ComputerName) == "" {
		return errors.NewValidationError("computer name is required", nil).WithField("computer_name")
	}
	return nil
}

// SessionConfig describes one concrete run: who is running what, on which
// subject, and where the data lands. CommitHash and AllowDirtyRepo record
// source-tree provenance captured during environment validation.
type SessionConfig struct {
	SessionName            string    `json:"session_name"`
	Subject                string    `json:"subject"`
	Experimenter           []string  `json:"experimenter"`
	RootPath               string    `json:"root_path"`
	Date                   time.Time `json:"date"`
	Notes                  string    `json:"notes,omitempty"`
	CommitHash             string    `json:"commit_hash,omitempty"`
	AllowDirtyRepo         bool      `json:"allow_dirty_repo"`
	SkipHardwareValidation bool      `json:"skip_hardware_validation"`

	// Back-filled from the task logic during pre-run.
	Experiment        string `json:"experiment"`
	ExperimentVersion string `json:"experiment_version"`
}

// Describe returns the session's descriptor. The version mirrors the
// experiment version once pre-run has back-filled it.
func (s SessionConfig) Describe() Descriptor {
	return Descriptor{Name: s.SessionName, Version: s.ExperimentVersion}
}

// Validate checks the session's required fields.
func (s SessionConfig) Validate() error {
	if strings.TrimSpace(s.Subject) == "" {
		return errors.NewValidationError("subject is required", nil).WithField("subject")
	}
	if strings.TrimSpace(s.RootPath) == "" {
		return errors.NewValidationError("root path is required", nil).WithField("root_path")
	}
	if s.Date.IsZero() {
		return errors.NewValidationError("session date is required", nil).WithField("date")
	}
	return nil
}

// TaskLogicConfig describes the protocol parameters of the experiment.
// Parameters are opaque to the launcher; only name and version matter for
// orchestration (they are copied into the session during pre-run).
type TaskLogicConfig struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Stage      string         `json:"stage,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// Describe returns the task logic's descriptor.
func (t TaskLogicConfig) Describe() Descriptor {
	return Descriptor{Name: t.Name, Version: t.Version}
}

// Validate checks the task logic's required fields.
func (t TaskLogicConfig) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.NewValidationError("task name is required", nil).WithField("name")
	}
	if strings.TrimSpace(t.Version) == "" {
		return errors.NewValidationError("task version is required", nil).WithField("version")
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Config = RigConfig{}
	_ Config = SessionConfig{}
	_ Config = TaskLogicConfig{}
)
