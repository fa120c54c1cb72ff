package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"educabiz-exporter/pkg/exporter"
	"educabiz-exporter/pkg/ui"
)

const logo = `
 ___ ___ _____  _____  ___  ___ _____
| __| _ ) __\ \/ / _ \/ _ \| _ \_   _|
| _|| _ \ _| >  <|  _/ (_) |   / | |
|___|___/___/_/\_\_|  \___/|_|_\ |_|`

var stageLabels = map[exporter.Stage]string{
	exporter.StageAuthenticating: "Sign in",
	exporter.StageScanning:       "Scan gallery",
	exporter.StageSubmitting:     "Request archive",
	exporter.StageWaiting:        "Wait for archive",
	exporter.StageDownloading:    "Download",
}

// View renders the TUI
func (m *Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	sections := []string{
		logoStyle.Render(logo),
		lipgloss.JoinHorizontal(lipgloss.Top,
			panelStyle.Render(m.renderStages()),
			panelStyle.Render(m.renderStats()),
		),
	}

	if m.jobStarted {
		sections = append(sections, panelStyle.Render(m.renderJob()))
	}
	if m.finished {
		sections = append(sections, panelStyle.Render(m.renderOutcome()))
	}
	if len(m.logMessages) > 0 {
		sections = append(sections, panelStyle.Render(m.renderLogs()))
	}
	if !m.finished {
		sections = append(sections, helpStyle.Render("q: quit • ?: help • ctrl+l: clear log"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderStages() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("EXPORT"))
	b.WriteString("\n")

	for _, stage := range stageOrder {
		label := stageLabels[stage]
		var line string
		switch m.stages[stage] {
		case StageActive:
			line = m.spinner.View() + " " + stageActiveStyle.Render(label)
		case StageDone:
			line = stageDoneStyle.Render("✓ " + label)
		case StageSkipped:
			line = stagePendingStyle.Render("- " + label)
		case StageFailed:
			line = errorStyle.Render("✗ " + label)
		default:
			line = stagePendingStyle.Render("  " + label)
		}
		if detail := m.details[stage]; detail != "" {
			line += stagePendingStyle.Render("  " + detail)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderStats() string {
	elapsed := m.now().Sub(m.startedAt)
	if m.finished {
		elapsed = m.finishedAt.Sub(m.startedAt)
	}

	rows := [][2]string{
		{"Pages", fmt.Sprintf("%d", m.pages)},
		{"Records", fmt.Sprintf("%d", m.records)},
		{"Selected", fmt.Sprintf("%d", m.selected)},
		{"Archive", ui.FormatBytes(m.downloaded)},
		{"Elapsed", elapsed.Round(time.Second).String()},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("STATS"))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render(fmt.Sprintf("%-9s", row[0])),
			statsValueStyle.Render(row[1])))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderJob() string {
	return fmt.Sprintf("%s\n%s %s",
		titleStyle.Render("ARCHIVE"),
		m.jobBar.View(),
		statsValueStyle.Render(fmt.Sprintf("%d/%d", m.jobDone, m.jobTotal)))
}

func (m *Model) renderOutcome() string {
	switch {
	case m.err != nil:
		return errorStyle.Render("Export failed: " + m.err.Error())
	case m.noPictures:
		return warningStyle.Render("Sorry, no pictures found")
	case m.result != nil:
		return successStyle.Render(fmt.Sprintf("Saved %d pictures to %s (%s)",
			m.result.Pictures, m.result.Archive, ui.FormatBytes(m.result.Bytes)))
	}
	return ""
}

func (m *Model) renderLogs() string {
	visible := 6
	if m.height > 30 {
		visible = m.height - 24
	}
	start := 0
	if len(m.logMessages) > visible {
		start = len(m.logMessages) - visible
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("LOG"))
	b.WriteString("\n")
	for _, msg := range m.logMessages[start:] {
		b.WriteString(fmt.Sprintf("%s %s\n",
			logTimeStyle.Render(msg.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(msg.Color).Render(msg.Message)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderHelp() string {
	help := `
Keys

  q, ctrl+c   stop the export
  ?           toggle this help
  ctrl+l      clear the log

A stopped export keeps its pending archive job.
Run again with --resume to pick it up.`

	return lipgloss.JoinVertical(lipgloss.Left,
		logoStyle.Render(logo),
		panelStyle.Render(help),
	)
}
