package ux

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("205"))

	pickerCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("170")).
				Bold(true)

	pickerDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// pickerModel is a minimal single-choice list. Up/down moves the
// cursor, enter selects, esc or ctrl+c cancels.
type pickerModel struct {
	title    string
	options  []string
	cursor   int
	choice   string
	canceled bool
}

func newPickerModel(title string, options []string) pickerModel {
	return pickerModel{title: title, options: options}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.Type {
	case tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case tea.KeyDown:
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case tea.KeyEnter:
		m.choice = m.options[m.cursor]
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyCtrlC:
		m.canceled = true
		return m, tea.Quit
	case tea.KeyRunes:
		switch string(keyMsg.Runes) {
		case "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "j":
			if m.cursor < len(m.options)-1 {
				m.cursor++
			}
		case "q":
			m.canceled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render(m.title))
	b.WriteString("\n\n")
	for i, option := range m.options {
		if i == m.cursor {
			b.WriteString(pickerCursorStyle.Render("> " + option))
		} else {
			b.WriteString("  " + option)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(pickerDimStyle.Render("up/down to move, enter to select, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}
