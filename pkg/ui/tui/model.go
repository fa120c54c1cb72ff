package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"educabiz-exporter/pkg/exporter"
)

// stageOrder is the order stages are listed in
var stageOrder = []exporter.Stage{
	exporter.StageAuthenticating,
	exporter.StageScanning,
	exporter.StageSubmitting,
	exporter.StageWaiting,
	exporter.StageDownloading,
}

// StageState tracks one step of the run
type StageState int

const (
	StagePending StageState = iota
	StageActive
	StageDone
	StageSkipped
	StageFailed
)

// Model is the bubbletea model of an export run. It is only touched from the
// bubbletea event loop.
type Model struct {
	spinner spinner.Model
	jobBar  progress.Model

	// run state
	stages      map[exporter.Stage]StageState
	current     exporter.Stage
	details     map[exporter.Stage]string
	pages       int
	records     int
	selected    int
	jobTotal    int
	jobDone     int
	jobStarted  bool
	downloaded  int64
	startedAt   time.Time
	finishedAt  time.Time
	result      *exporter.Result
	err         error
	noPictures  bool
	finished    bool
	interrupted bool

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	now func() time.Time
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a model for a fresh run
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	stages := make(map[exporter.Stage]StageState, len(stageOrder))
	for _, st := range stageOrder {
		stages[st] = StagePending
	}

	return Model{
		spinner:        s,
		jobBar:         bar,
		stages:         stages,
		details:        make(map[exporter.Stage]string),
		startedAt:      time.Now(),
		maxLogMessages: 50,
		now:            time.Now,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// enterStage marks the previous stage done and activates stage. Resuming
// replaces the scan and submit stages.
func (m *Model) enterStage(stage exporter.Stage, detail string) {
	if stage == exporter.StageResuming {
		m.stages[exporter.StageScanning] = StageSkipped
		m.stages[exporter.StageSubmitting] = StageSkipped
		m.details[exporter.StageScanning] = "resumed job " + detail
		m.AddLogMessage("INFO", "Resuming export job "+detail)
		return
	}

	if m.current != "" && m.stages[m.current] == StageActive {
		m.stages[m.current] = StageDone
	}
	m.current = stage
	m.stages[stage] = StageActive
	m.details[stage] = detail
}

// pageScanned records gallery progress
func (m *Model) pageScanned(page, onPage, kept, total int) {
	m.pages = page
	m.records += onPage
	m.selected = total
}

func (m *Model) jobStart(total, processed int) {
	m.jobTotal = total
	m.jobDone = processed
	m.jobStarted = true
}

func (m *Model) jobUpdate(processed int) {
	if m.jobStarted {
		m.jobDone = processed
	}
}

// JobPercent returns the packing progress in [0, 1]
func (m *Model) JobPercent() float64 {
	if m.jobTotal <= 0 {
		return 0
	}
	p := float64(m.jobDone) / float64(m.jobTotal)
	if p > 1 {
		return 1
	}
	return p
}

func (m *Model) complete(result exporter.Result) {
	m.stages[m.current] = StageDone
	m.result = &result
	m.finish()
	m.AddLogMessage("SUCCESS", fmt.Sprintf("Saved %d pictures to %s", result.Pictures, result.Archive))
}

func (m *Model) empty() {
	m.stages[m.current] = StageDone
	for _, st := range stageOrder {
		if m.stages[st] == StagePending {
			m.stages[st] = StageSkipped
		}
	}
	m.noPictures = true
	m.finish()
	m.AddLogMessage("WARN", "Sorry, no pictures found")
}

func (m *Model) fail(err error) {
	if m.current != "" {
		m.stages[m.current] = StageFailed
	}
	m.err = err
	m.finish()
	m.AddLogMessage("ERROR", err.Error())
}

func (m *Model) finish() {
	m.finished = true
	m.finishedAt = m.now()
}

// Finished reports whether the run reached a terminal event
func (m *Model) Finished() bool {
	return m.finished
}

// Err returns the error that ended the run, if any
func (m *Model) Err() error {
	return m.err
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}
