package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"educabiz-exporter/pkg/exporter"
)

// ConsoleReporter prints a run's progress as plain lines, with a single
// rewritten line for the packing progress bar
type ConsoleReporter struct {
	mu      sync.Mutex
	out     io.Writer
	bar     *JobProgressBar
	verbose bool

	lastDownload time.Time
	now          func() time.Time
}

// NewConsoleReporter creates a reporter writing to out. Verbose adds one line
// per scanned gallery page.
func NewConsoleReporter(out io.Writer, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:     out,
		bar:     NewJobProgressBar(out),
		verbose: verbose,
		now:     time.Now,
	}
}

var stageLabels = map[exporter.Stage]string{
	exporter.StageAuthenticating: "Logging in as",
	exporter.StageScanning:       "Scanning gallery since",
	exporter.StageSubmitting:     "Requesting zip of",
	exporter.StageResuming:       "Resuming export job",
	exporter.StageWaiting:        "Waiting for export job",
	exporter.StageDownloading:    "Downloading",
}

// Stage prints the step the run entered
func (c *ConsoleReporter) Stage(stage exporter.Stage, detail string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	label, ok := stageLabels[stage]
	if !ok {
		label = string(stage)
	}
	fmt.Fprintf(c.out, "%s %s %s\n", Cyan("→"), label, Yellow(detail))
}

// PageScanned prints gallery progress in verbose mode
func (c *ConsoleReporter) PageScanned(page, onPage, kept, total int) {
	if !c.verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "  %s page %d: %d pictures, %d selected, %d so far\n",
		Dim("•"), page, onPage, kept, total)
}

func (c *ConsoleReporter) Start(total, processed int) { c.bar.Start(total, processed) }
func (c *ConsoleReporter) Update(processed int)       { c.bar.Update(processed) }
func (c *ConsoleReporter) Finish()                    { c.bar.Finish() }

// Downloaded prints the running archive size at most twice a second
func (c *ConsoleReporter) Downloaded(written int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastDownload) < 500*time.Millisecond {
		return
	}
	c.lastDownload = now
	fmt.Fprintf(c.out, "\r%s %s", Magenta("[DOWNLOADING]"), FormatBytes(written))
}

// NoPictures reports an empty selection
func (c *ConsoleReporter) NoPictures() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "%s Sorry, no pictures found\n", Yellow("!"))
}

// Completed prints the run summary
func (c *ConsoleReporter) Completed(result exporter.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%s Saved %d pictures to %s\n", Green("✓"), result.Pictures, result.Archive)
	fmt.Fprintf(c.out, "  %s %s in %s\n", Dim("•"), FormatBytes(result.Bytes), formatDuration(result.Duration()))
	if result.Resumed {
		fmt.Fprintf(c.out, "  %s resumed export job %s\n", Dim("•"), result.JobID)
	}
	if result.Manifest != "" {
		fmt.Fprintf(c.out, "  %s manifest %s\n", Dim("•"), result.Manifest)
	}
}

// Failed prints the error that aborted the run
func (c *ConsoleReporter) Failed(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "\n%s %v\n", Red("✗"), err)
}
