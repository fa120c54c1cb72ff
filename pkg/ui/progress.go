package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
	barWidth      = 30
)

// JobProgressBar renders the server-side packing progress of an export job
// on a single terminal line
type JobProgressBar struct {
	mu        sync.Mutex
	out       io.Writer
	total     int
	processed int
	started   time.Time
	active    bool
	now       func() time.Time
}

// NewJobProgressBar creates a bar writing to out
func NewJobProgressBar(out io.Writer) *JobProgressBar {
	return &JobProgressBar{out: out, now: time.Now}
}

// Start initializes the bar with the job's size
func (b *JobProgressBar) Start(total, processed int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.total = total
	b.processed = processed
	b.started = b.now()
	b.active = true
	b.render()
}

// Update moves the bar
func (b *JobProgressBar) Update(processed int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return
	}
	b.processed = processed
	b.render()
}

// Finish completes the bar and ends the line
func (b *JobProgressBar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.active {
		return
	}
	b.processed = b.total
	b.render()
	fmt.Fprintln(b.out)
	b.active = false
}

// Line returns the current bar text without color
func (b *JobProgressBar) Line() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.line()
}

func (b *JobProgressBar) line() string {
	ratio := 0.0
	if b.total > 0 {
		ratio = float64(b.processed) / float64(b.total)
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * barWidth)

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, barWidth-filled)
	return fmt.Sprintf("[%s] %d/%d %3.0f%% • %s", bar, b.processed, b.total, ratio*100, b.eta())
}

func (b *JobProgressBar) eta() string {
	if b.processed == 0 || b.processed >= b.total {
		return formatDuration(b.now().Sub(b.started))
	}
	elapsed := b.now().Sub(b.started)
	perItem := elapsed / time.Duration(b.processed)
	return "eta " + formatDuration(perItem*time.Duration(b.total-b.processed))
}

func (b *JobProgressBar) render() {
	fmt.Fprintf(b.out, "\r%s %s", Magenta("[PACKING]"), b.line())
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
