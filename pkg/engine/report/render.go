// Package report presents run summaries: styled terminal output and
// JSON, CSV or YAML exports.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorNeonGreen  = lipgloss.Color("#00FF99")
	colorNeonPurple = lipgloss.Color("#874BFD")
	colorTextSub    = lipgloss.Color("#64748B")
	colorDanger     = lipgloss.Color("#FF0055")
	colorWarning    = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().Foreground(colorNeonPurple).Bold(true)
	subtle     = lipgloss.NewStyle().Foreground(colorTextSub)
	special    = lipgloss.NewStyle().Foreground(colorNeonGreen).Bold(true)
	danger     = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	warning    = lipgloss.NewStyle().Foreground(colorWarning)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorTextSub).
			Padding(0, 1)
)

func statusStyle(s engine.OutcomeStatus) lipgloss.Style {
	switch s {
	case engine.Applied:
		return special
	case engine.Failed:
		return danger
	}
	return warning
}

// Line renders one outcome as it happens. Details are printed in full,
// including credentials issued by the run; they are shown nowhere else.
func Line(o engine.ActionOutcome) string {
	var b strings.Builder
	b.WriteString(statusStyle(o.Status).Render(fmt.Sprintf("[%s]", o.Status)))
	b.WriteString(" ")
	b.WriteString(o.Message)
	if o.Reason != "" {
		b.WriteString(subtle.Render(" (" + o.Reason + ")"))
	}
	keys := make([]string, 0, len(o.Details))
	for k := range o.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n    %s: %s", k, o.Details[k])
	}
	return b.String()
}

// Render draws the summary card printed at the end of a run.
func Render(s *engine.BatchSummary) string {
	mode := "live"
	if s.DryRun {
		mode = "dry run"
	}
	var rows []string
	rows = append(rows, titleStyle.Render(fmt.Sprintf("%s (%s)", s.Job, mode)))
	rows = append(rows, fmt.Sprintf("%-10s %d", "listed", s.Listed))
	rows = append(rows, special.Render(fmt.Sprintf("%-10s %d", "applied", s.Applied)))
	if s.DryRun || s.Simulated > 0 {
		rows = append(rows, warning.Render(fmt.Sprintf("%-10s %d", "simulated", s.Simulated)))
	}
	failed := fmt.Sprintf("%-10s %d", "failed", s.Failed)
	if s.Failed > 0 {
		failed = danger.Render(failed)
	}
	rows = append(rows, failed)
	rows = append(rows, subtle.Render(fmt.Sprintf("%-10s %d", "skipped", s.Skipped)))
	rows = append(rows, fmt.Sprintf("%-10s %s", "status", s.Status))

	switch s.Status {
	case engine.StatusNothingToDo:
		rows = append(rows, subtle.Render("Nothing to do."))
	case engine.StatusPartialFailure:
		for _, o := range s.Outcomes {
			if o.Status == engine.Failed {
				rows = append(rows, danger.Render("✗ ")+o.Message)
			}
		}
	}
	return cardStyle.Render(strings.Join(rows, "\n"))
}
