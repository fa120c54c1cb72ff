package exporter

import (
	"time"

	"educabiz-exporter/pkg/educabiz"
)

// Stage names a step of an export run
type Stage string

const (
	StageAuthenticating Stage = "authenticating"
	StageScanning       Stage = "scanning"
	StageSubmitting     Stage = "submitting"
	StageResuming       Stage = "resuming"
	StageWaiting        Stage = "waiting"
	StageDownloading    Stage = "downloading"
)

// StatusReporter receives user-facing progress of a run. Exactly one of
// NoPictures, Completed or Failed ends every run.
type StatusReporter interface {
	educabiz.PageObserver
	educabiz.ProgressObserver

	Stage(stage Stage, detail string)
	Downloaded(written int64)
	NoPictures()
	Completed(result Result)
	Failed(err error)
}

// Result summarizes a finished run
type Result struct {
	RunID    string
	Cutoff   time.Time
	ScanMode educabiz.ScanMode

	Pages    int
	Pictures int
	Resumed  bool
	// NoPictures is set when the filter matched nothing and no job was submitted
	NoPictures bool

	JobID       string
	DownloadURL string
	Archive     string
	Bytes       int64
	Manifest    string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns the run's wall clock time
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// NopReporter ignores every event
type NopReporter struct{}

func (NopReporter) PageScanned(page, onPage, kept, total int) {}
func (NopReporter) Start(total, processed int)                {}
func (NopReporter) Update(processed int)                      {}
func (NopReporter) Finish()                                   {}
func (NopReporter) Stage(stage Stage, detail string)          {}
func (NopReporter) Downloaded(written int64)                  {}
func (NopReporter) NoPictures()                               {}
func (NopReporter) Completed(result Result)                   {}
func (NopReporter) Failed(err error)                          {}

// pageFanout forwards page events to several observers
type pageFanout []educabiz.PageObserver

func (f pageFanout) PageScanned(page, onPage, kept, total int) {
	for _, o := range f {
		o.PageScanned(page, onPage, kept, total)
	}
}

// progressFanout forwards job progress to several observers
type progressFanout []educabiz.ProgressObserver

func (f progressFanout) Start(total, processed int) {
	for _, o := range f {
		o.Start(total, processed)
	}
}

func (f progressFanout) Update(processed int) {
	for _, o := range f {
		o.Update(processed)
	}
}

func (f progressFanout) Finish() {
	for _, o := range f {
		o.Finish()
	}
}
