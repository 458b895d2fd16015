// Package datamapper converts the resolved configuration records and run
// results into a standardized record for downstream ingestion. Mapping is
// a best-effort post-run step: a mapping failure is logged and must never
// block the remaining disposal steps.
package datamapper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/sciops/benchrun/internal/errors"
	"github.com/sciops/benchrun/internal/schema"
)

// Record is the standardized output of a mapping pass.
type Record struct {
	Subject           string    `json:"subject"`
	Experimenter      []string  `json:"experimenter"`
	Experiment        string    `json:"experiment"`
	ExperimentVersion string    `json:"experiment_version"`
	RigName           string    `json:"rig_name"`
	SessionStart      time.Time `json:"session_start"`
	SessionEnd        time.Time `json:"session_end"`
	CommitHash        string    `json:"commit_hash,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	DataPath          string    `json:"data_path"`
}

// Mapper is the data-mapping capability.
type Mapper interface {
	// Validate checks that the mapper has what it needs to run.
	Validate() error
	// Map produces the standardized record and remembers it.
	Map() (*Record, error)
	// IsMapped reports whether Map has succeeded.
	IsMapped() bool
	// Mapped returns the produced record, or an error if Map has not
	// succeeded yet.
	Mapped() (*Record, error)
}

// SessionSummaryMapper folds the three configuration records into one
// Record and writes it as session.json inside the session directory.
type SessionSummaryMapper struct {
	Rig        schema.RigConfig
	Session    schema.SessionConfig
	Task       schema.TaskLogicConfig
	SessionDir string
	Clock      func() time.Time

	mapped *Record
}

// NewSessionSummaryMapper creates a mapper over resolved configuration.
func NewSessionSummaryMapper(rig schema.RigConfig, session schema.SessionConfig, task schema.TaskLogicConfig, sessionDir string) *SessionSummaryMapper {
	return &SessionSummaryMapper{
		Rig:        rig,
		Session:    session,
		Task:       task,
		SessionDir: sessionDir,
		Clock:      time.Now,
	}
}

// Validate checks the mapper's inputs.
func (m *SessionSummaryMapper) Validate() error {
	if m.SessionDir == "" {
		return errors.NewValidationError("session directory is required", nil).WithField("session_dir")
	}
	return m.Session.Validate()
}

// Map produces the standardized record and persists it to
// {SessionDir}/session.json.
func (m *SessionSummaryMapper) Map() (*Record, error) {
	record := &Record{
		Subject:           m.Session.Subject,
		Experimenter:      m.Session.Experimenter,
		Experiment:        m.Session.Experiment,
		ExperimentVersion: m.Session.ExperimentVersion,
		RigName:           m.Rig.RigName,
		SessionStart:      m.Session.Date,
		SessionEnd:        m.Clock(),
		CommitHash:        m.Session.CommitHash,
		Notes:             m.Session.Notes,
		DataPath:          m.SessionDir,
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(m.SessionDir, 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(m.SessionDir, "session.json"), data, 0644); err != nil {
		return nil, err
	}

	m.mapped = record
	return record, nil
}

// IsMapped reports whether Map has succeeded.
func (m *SessionSummaryMapper) IsMapped() bool {
	return m.mapped != nil
}

// Mapped returns the produced record.
func (m *SessionSummaryMapper) Mapped() (*Record, error) {
	if m.mapped == nil {
		return nil, errors.New("session has not been mapped yet")
	}
	return m.mapped, nil
}

var _ Mapper = (*SessionSummaryMapper)(nil)
