package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"educabiz-exporter/pkg/exporter"
)

// Message types for the TUI

// StageMsg is sent when the run enters a stage
type StageMsg struct {
	Stage  exporter.Stage
	Detail string
}

// PageMsg is sent for every scanned gallery page
type PageMsg struct {
	Page, OnPage, Kept, Total int
}

// JobStartMsg is sent on the first export job poll
type JobStartMsg struct {
	Total, Processed int
}

// JobUpdateMsg is sent on later polls
type JobUpdateMsg struct {
	Processed int
}

// JobFinishMsg is sent when the job reports completion
type JobFinishMsg struct{}

// DownloadMsg carries the running archive size
type DownloadMsg struct {
	Written int64
}

// CompletedMsg ends a successful run
type CompletedMsg struct {
	Result exporter.Result
}

// NoPicturesMsg ends a run that matched nothing
type NoPicturesMsg struct{}

// FailedMsg ends a failed run
type FailedMsg struct {
	Err error
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// TickMsg is sent periodically to refresh elapsed times
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.jobBar.Width = clamp(msg.Width/2-10, 20, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		updated, cmd := m.jobBar.Update(msg)
		if bar, ok := updated.(progress.Model); ok {
			m.jobBar = bar
		}
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case StageMsg:
		m.enterStage(msg.Stage, msg.Detail)
		return m, nil

	case PageMsg:
		m.pageScanned(msg.Page, msg.OnPage, msg.Kept, msg.Total)
		return m, nil

	case JobStartMsg:
		m.jobStart(msg.Total, msg.Processed)
		return m, m.jobBar.SetPercent(m.JobPercent())

	case JobUpdateMsg:
		m.jobUpdate(msg.Processed)
		return m, m.jobBar.SetPercent(m.JobPercent())

	case JobFinishMsg:
		m.jobUpdate(m.jobTotal)
		return m, m.jobBar.SetPercent(1)

	case DownloadMsg:
		m.downloaded = msg.Written
		return m, nil

	case CompletedMsg:
		m.complete(msg.Result)
		return m, tea.Quit

	case NoPicturesMsg:
		m.empty()
		return m, tea.Quit

	case FailedMsg:
		m.fail(msg.Err)
		return m, tea.Quit

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		m.interrupted = true
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// Interrupted reports whether the user quit before the run ended
func (m *Model) Interrupted() bool {
	return m.interrupted
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
