// Package tui holds the interactive confirmation shown before a live run.
package tui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a confirmation is needed but there is no
// terminal to ask on.
var ErrNotInteractive = errors.New("refusing to run without confirmation: no terminal attached, pass --yes to proceed")

var (
	colorNeonGreen  = lipgloss.Color("#00FF99")
	colorNeonPurple = lipgloss.Color("#874BFD")
	colorTextSub    = lipgloss.Color("#64748B")
	colorDanger     = lipgloss.Color("#FF0055")

	titleStyle  = lipgloss.NewStyle().Foreground(colorNeonPurple).Bold(true)
	subtle      = lipgloss.NewStyle().Foreground(colorTextSub)
	special     = lipgloss.NewStyle().Foreground(colorNeonGreen).Bold(true)
	dangerStyle = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(0, 1)
)

type keyMap struct {
	Yes key.Binding
	No  key.Binding
}

var keys = keyMap{
	Yes: key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "proceed")),
	No:  key.NewBinding(key.WithKeys("n", "N", "esc", "q", "ctrl+c", "enter"), key.WithHelp("n", "abort")),
}

// Model is a yes/no prompt. Anything but an explicit "y" aborts.
type Model struct {
	Title   string
	Details []string

	confirmed bool
	done      bool
}

func NewModel(title string, details []string) Model {
	return Model{Title: title, Details: details}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(k, keys.Yes):
		m.confirmed = true
		m.done = true
		return m, tea.Quit
	case key.Matches(k, keys.No):
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		if m.confirmed {
			return special.Render("Proceeding.") + "\n"
		}
		return subtle.Render("Aborted.") + "\n"
	}
	var b strings.Builder
	b.WriteString(dangerStyle.Render("LIVE RUN") + "  " + titleStyle.Render(m.Title) + "\n")
	for _, d := range m.Details {
		b.WriteString(subtle.Render("  "+d) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Continue? %s / %s",
		special.Render(keys.Yes.Help().Key+" "+keys.Yes.Help().Desc),
		subtle.Render(keys.No.Help().Key+" "+keys.No.Help().Desc)))
	return boxStyle.Render(b.String()) + "\n"
}

// Confirmed reports whether the user accepted.
func (m Model) Confirmed() bool { return m.confirmed }

// Interactive reports whether f is attached to a terminal.
func Interactive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Confirm asks the user on in/out whether to go ahead.
func Confirm(in io.Reader, out io.Writer, title string, details []string) (bool, error) {
	p := tea.NewProgram(NewModel(title, details), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return false, nil
	}
	return m.Confirmed(), nil
}
