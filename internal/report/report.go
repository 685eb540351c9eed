// Package report renders the end-of-run summary for the terminal.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/akanksha05Singh/gemini-email-agent/internal/agent"
	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	subjectStyle = lipgloss.NewStyle().
			Bold(true)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	executedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	simulatedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	droppedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))
)

// Render formats a run summary for terminal output.
func Render(s *agent.RunSummary) string {
	var sb strings.Builder

	title := "Run summary"
	if s.DryRun {
		title = "Run summary (dry run)"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	if len(s.Results) == 0 {
		sb.WriteString(metaStyle.Render("No unread emails."))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, r := range s.Results {
		sb.WriteString("\n")
		sb.WriteString(subjectStyle.Render(r.Subject))
		sb.WriteString("\n")
		sb.WriteString(metaStyle.Render(fmt.Sprintf(
			"  from %s | %s/%s | confidence %.2f | %s",
			r.Sender,
			r.Classification.Intent,
			r.Classification.Priority,
			r.Classification.ConfidenceScore,
			r.Status,
		)))
		sb.WriteString("\n")

		for _, a := range r.Actions {
			sb.WriteString("  ")
			sb.WriteString(renderAction(a))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// RenderHistory formats stored audit records, newest first, for the
// history subcommand.
func RenderHistory(records []model.AuditRecord) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Audit history"))
	sb.WriteString("\n")

	if len(records) == 0 {
		sb.WriteString(metaStyle.Render("No audit records."))
		sb.WriteString("\n")
		return sb.String()
	}

	for _, rec := range records {
		sb.WriteString("\n")
		sb.WriteString(subjectStyle.Render(rec.Subject))
		sb.WriteString("\n")
		sb.WriteString(metaStyle.Render(fmt.Sprintf(
			"  %s | %s/%s | confidence %.2f | %s | %s",
			rec.EmailID,
			rec.Classification.Intent,
			rec.Classification.Priority,
			rec.Classification.ConfidenceScore,
			rec.Status,
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
		)))
		sb.WriteString("\n")

		for _, a := range rec.Actions {
			sb.WriteString("  ")
			sb.WriteString(renderAction(a))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func renderAction(a model.ExecutedAction) string {
	label := string(a.Type)
	if a.Value != "" {
		label += " " + a.Value
	}
	if a.Mode != "" {
		label += " [" + string(a.Mode) + "]"
	}

	switch {
	case a.Simulated:
		return simulatedStyle.Render("~ " + label + " (simulated)")
	case a.Executed:
		return executedStyle.Render("+ " + label)
	default:
		detail := a.Detail
		if detail == "" {
			detail = "not executed"
		}
		return droppedStyle.Render("- " + label + " (" + detail + ")")
	}
}
