// Package ux is the operator-facing prompt layer. All interactive input
// for a run goes through the Prompter interface so the launcher and
// pickers stay testable without a terminal.
package ux

import (
	"github.com/sciops/benchrun/internal/errors"
)

// Prompter collects operator input during launcher setup.
type Prompter interface {
	// PickFromList asks the operator to choose one of options.
	PickFromList(title string, options []string) (string, error)

	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)

	// Input reads one free-form line.
	Input(prompt string) (string, error)

	// PromptExperimenter collects at least one experimenter name.
	PromptExperimenter() ([]string, error)

	// PromptNotes collects optional free-form session notes.
	PromptNotes() (string, error)
}

// Scripted is a Prompter that replays canned answers, for tests and
// non-interactive runs. Each answer slice is consumed in order; running
// out of answers is an error.
type Scripted struct {
	Picks        []string
	Confirms     []bool
	Inputs       []string
	Experimenter []string
	Notes        string

	pickIdx    int
	confirmIdx int
	inputIdx   int
}

// PickFromList returns the next scripted pick if it is in options.
func (s *Scripted) PickFromList(title string, options []string) (string, error) {
	if s.pickIdx >= len(s.Picks) {
		return "", errors.NewValidationError("no scripted answer for pick: "+title, errors.ErrInvalidInput)
	}
	pick := s.Picks[s.pickIdx]
	s.pickIdx++
	for _, opt := range options {
		if opt == pick {
			return pick, nil
		}
	}
	return "", errors.NewValidationError("scripted pick not among options: "+pick, errors.ErrInvalidInput)
}

// Confirm returns the next scripted yes/no answer.
func (s *Scripted) Confirm(question string) (bool, error) {
	if s.confirmIdx >= len(s.Confirms) {
		return false, errors.NewValidationError("no scripted answer for confirm: "+question, errors.ErrInvalidInput)
	}
	answer := s.Confirms[s.confirmIdx]
	s.confirmIdx++
	return answer, nil
}

// Input returns the next scripted input line.
func (s *Scripted) Input(prompt string) (string, error) {
	if s.inputIdx >= len(s.Inputs) {
		return "", errors.NewValidationError("no scripted answer for input: "+prompt, errors.ErrInvalidInput)
	}
	line := s.Inputs[s.inputIdx]
	s.inputIdx++
	return line, nil
}

// PromptExperimenter returns the scripted experimenter list.
func (s *Scripted) PromptExperimenter() ([]string, error) {
	if len(s.Experimenter) == 0 {
		return nil, errors.NewValidationError("no scripted experimenter", errors.ErrInvalidInput)
	}
	return s.Experimenter, nil
}

// PromptNotes returns the scripted notes.
func (s *Scripted) PromptNotes() (string, error) {
	return s.Notes, nil
}

var _ Prompter = (*Scripted)(nil)
