package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ebexport"

// Run outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeNoPicture = "no_pictures"
	OutcomeFailure   = "failure"
)

// Collector holds the Prometheus instrumentation of one export run. It
// satisfies the gallery page observer and the export job progress observer
// so it can be chained next to the console reporter. A nil Collector is a
// valid no-op.
type Collector struct {
	registry *prometheus.Registry

	pagesScanned   prometheus.Counter
	records        *prometheus.CounterVec
	picturesQueued prometheus.Gauge
	jobPolls       prometheus.Counter
	jobProcessed   prometheus.Gauge
	jobTotal       prometheus.Gauge
	archiveBytes   prometheus.Gauge
	runs           *prometheus.CounterVec
	runDuration    prometheus.Gauge
	lastSuccess    prometheus.Gauge
}

// New registers the exporter collectors on a private registry
func New() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		pagesScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_pages_scanned_total",
			Help:      "Gallery pages fetched, including the terminating empty page",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gallery_records_total",
			Help:      "Gallery records seen, by whether they passed the date filter",
		}, []string{"result"}),
		picturesQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pictures_queued",
			Help:      "Pictures selected for the export job",
		}),
		jobPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_polls_total",
			Help:      "Export job progress polls",
		}),
		jobProcessed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_processed",
			Help:      "Pictures the portal has packed so far",
		}),
		jobTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_total",
			Help:      "Pictures the portal reported for the job",
		}),
		archiveBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "archive_bytes",
			Help:      "Size of the downloaded archive",
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Export runs by outcome",
		}, []string{"outcome"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall clock duration of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful export",
		}),
	}

	registry.MustRegister(
		c.pagesScanned, c.records, c.picturesQueued,
		c.jobPolls, c.jobProcessed, c.jobTotal,
		c.archiveBytes, c.runs, c.runDuration, c.lastSuccess,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// PageScanned records one processed gallery page
func (c *Collector) PageScanned(page, onPage, kept, total int) {
	if c == nil {
		return
	}
	c.pagesScanned.Inc()
	c.records.WithLabelValues("kept").Add(float64(kept))
	c.records.WithLabelValues("skipped").Add(float64(onPage - kept))
}

// PicturesQueued records how many pictures were submitted
func (c *Collector) PicturesQueued(n int) {
	if c == nil {
		return
	}
	c.picturesQueued.Set(float64(n))
}

// Start records the first progress poll
func (c *Collector) Start(total, processed int) {
	if c == nil {
		return
	}
	c.jobPolls.Inc()
	c.jobTotal.Set(float64(total))
	c.jobProcessed.Set(float64(processed))
}

// Update records a later progress poll
func (c *Collector) Update(processed int) {
	if c == nil {
		return
	}
	c.jobPolls.Inc()
	c.jobProcessed.Set(float64(processed))
}

// Finish is a no-op; completion is recorded by RecordRun
func (c *Collector) Finish() {}

// RecordArchive records the downloaded archive size
func (c *Collector) RecordArchive(bytes int64) {
	if c == nil {
		return
	}
	c.archiveBytes.Set(float64(bytes))
}

// RecordRun records the outcome and duration of a run
func (c *Collector) RecordRun(outcome string, started, finished time.Time) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(outcome).Inc()
	c.runDuration.Set(finished.Sub(started).Seconds())
	if outcome == OutcomeSuccess {
		c.lastSuccess.Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
