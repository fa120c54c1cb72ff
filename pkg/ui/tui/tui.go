package tui

import (
	"context"
	"errors"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"educabiz-exporter/pkg/exporter"
)

// TUI represents the terminal user interface. It implements
// exporter.StatusReporter so an orchestrator can drive it from another
// goroutine.
type TUI struct {
	program *tea.Program
	cancel  context.CancelFunc
}

var _ exporter.StatusReporter = (*TUI)(nil)

// NewTUI creates a new TUI instance. cancel is called when the user quits
// before the run ends.
func NewTUI(ctx context.Context, out io.Writer, cancel context.CancelFunc) *TUI {
	model := NewModel()
	program := tea.NewProgram(&model, tea.WithContext(ctx), tea.WithOutput(out))

	return &TUI{
		program: program,
		cancel:  cancel,
	}
}

// Run shows the TUI until the export ends or the user quits. It blocks.
func (t *TUI) Run() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	final, err := t.program.Run()
	if m, ok := final.(*Model); ok && m.Interrupted() && !m.Finished() && t.cancel != nil {
		t.cancel()
	}
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) Stage(stage exporter.Stage, detail string) {
	t.Send(StageMsg{Stage: stage, Detail: detail})
}

func (t *TUI) PageScanned(page, onPage, kept, total int) {
	t.Send(PageMsg{Page: page, OnPage: onPage, Kept: kept, Total: total})
}

// Start, Update and Finish follow the export job's packing progress
func (t *TUI) Start(total, processed int) {
	t.Send(JobStartMsg{Total: total, Processed: processed})
}

func (t *TUI) Update(processed int) {
	t.Send(JobUpdateMsg{Processed: processed})
}

func (t *TUI) Finish() {
	t.Send(JobFinishMsg{})
}

// Downloaded reports the archive bytes written so far
func (t *TUI) Downloaded(written int64) {
	t.Send(DownloadMsg{Written: written})
}

func (t *TUI) NoPictures() {
	t.Send(NoPicturesMsg{})
}

func (t *TUI) Completed(result exporter.Result) {
	t.Send(CompletedMsg{Result: result})
}

func (t *TUI) Failed(err error) {
	t.Send(FailedMsg{Err: err})
}
