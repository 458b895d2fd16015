package ux

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/sciops/benchrun/internal/errors"
)

// maxPromptAttempts bounds retries on unparseable input before the
// prompt gives up.
const maxPromptAttempts = 3

// Terminal is the interactive Prompter. On a real TTY list selection
// uses a full-screen picker; otherwise it degrades to a numbered list
// read line by line, which keeps piped input working.
type Terminal struct {
	in    *bufio.Reader
	out   io.Writer
	isTTY func() bool
}

// NewTerminal creates a prompter over stdin/stdout.
func NewTerminal() *Terminal {
	return &Terminal{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		isTTY: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
	}
}

// NewTerminalWith creates a prompter over explicit streams. The TTY
// path is disabled, so list selection always uses the numbered
// fallback. This is primarily useful for testing.
func NewTerminalWith(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:    bufio.NewReader(in),
		out:   out,
		isTTY: func() bool { return false },
	}
}

// PickFromList asks the operator to choose one of options.
func (t *Terminal) PickFromList(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.NewValidationError("nothing to pick from: "+title, errors.ErrInvalidInput)
	}
	if len(options) == 1 {
		return options[0], nil
	}
	if t.isTTY() {
		return t.pickInteractive(title, options)
	}
	return t.pickNumbered(title, options)
}

func (t *Terminal) pickInteractive(title string, options []string) (string, error) {
	program := tea.NewProgram(newPickerModel(title, options))
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	model := final.(pickerModel)
	if model.canceled {
		return "", errors.ErrUserDeclined
	}
	return model.choice, nil
}

func (t *Terminal) pickNumbered(title string, options []string) (string, error) {
	fmt.Fprintln(t.out, title)
	for i, option := range options {
		fmt.Fprintf(t.out, "  %2d. %s\n", i+1, option)
	}

	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		fmt.Fprintf(t.out, "Choice [1-%d]: ", len(options))
		line, err := t.readLine()
		if err != nil {
			return "", err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && n >= 1 && n <= len(options) {
			return options[n-1], nil
		}
		fmt.Fprintln(t.out, "Invalid choice.")
	}
	return "", errors.NewValidationError("too many invalid choices", errors.ErrInvalidInput)
}

// Confirm asks a yes/no question.
func (t *Terminal) Confirm(question string) (bool, error) {
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		fmt.Fprintf(t.out, "%s (y/n): ", question)
		line, err := t.readLine()
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please answer y or n.")
	}
	return false, errors.NewValidationError("too many invalid answers", errors.ErrInvalidInput)
}

// Input reads one free-form line.
func (t *Terminal) Input(prompt string) (string, error) {
	fmt.Fprintf(t.out, "%s: ", prompt)
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// PromptExperimenter collects experimenter names until a blank line,
// requiring at least one.
func (t *Terminal) PromptExperimenter() ([]string, error) {
	fmt.Fprintln(t.out, "Experimenter name(s), blank line to finish:")
	var names []string
	for {
		line, err := t.Input("experimenter")
		if err != nil {
			return nil, err
		}
		if line == "" {
			if len(names) > 0 {
				return names, nil
			}
			fmt.Fprintln(t.out, "At least one experimenter is required.")
			continue
		}
		names = append(names, line)
	}
}

// PromptNotes collects optional session notes.
func (t *Terminal) PromptNotes() (string, error) {
	return t.Input("Session notes (optional)")
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return line, nil
}

var _ Prompter = (*Terminal)(nil)
