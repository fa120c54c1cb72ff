package exporter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"educabiz-exporter/pkg/checkpoint"
	"educabiz-exporter/pkg/config"
	"educabiz-exporter/pkg/educabiz"
	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/metadata"
	"educabiz-exporter/pkg/metrics"
	"educabiz-exporter/pkg/ratelimit"
	"educabiz-exporter/pkg/storage"
)

// Orchestrator runs exports for the account and child in its configuration
type Orchestrator struct {
	cfg *config.Config

	client  *educabiz.Client
	auth    *educabiz.Authenticator
	scanner *educabiz.GalleryScanner
	driver  *educabiz.ExportJobDriver

	storage     *storage.Manager
	checkpoints *checkpoint.Manager
	metrics     *metrics.Collector
	reporter    StatusReporter
	logger      logger.Logger

	httpClient *http.Client
	limiter    ratelimit.Limiter
	now        func() time.Time
}

// Option customizes an Orchestrator
type Option func(*Orchestrator)

// WithReporter sets the status reporter
func WithReporter(r StatusReporter) Option {
	return func(o *Orchestrator) { o.reporter = r }
}

// WithMetrics sets the metrics collector
func WithMetrics(m *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithCheckpoints overrides where export state is kept
func WithCheckpoints(m *checkpoint.Manager) Option {
	return func(o *Orchestrator) { o.checkpoints = m }
}

// WithHTTPClient overrides the HTTP client used for every portal call
func WithHTTPClient(hc *http.Client) Option {
	return func(o *Orchestrator) { o.httpClient = hc }
}

// WithLimiter overrides the gallery page limiter
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *Orchestrator) { o.limiter = l }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New wires an Orchestrator from cfg. Credentials are expected to be merged
// into cfg already.
func New(cfg *config.Config, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:      cfg,
		reporter: NopReporter{},
		logger:   logger.GetLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	clientOpts := []educabiz.ClientOption{
		educabiz.WithLogger(o.logger),
		educabiz.WithUserAgent(cfg.Educabiz.UserAgent),
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, educabiz.WithHTTPClient(o.httpClient))
	}

	client, err := educabiz.NewClient(cfg.BaseURL(), cfg.HTTP.Timeout, clientOpts...)
	if err != nil {
		return nil, err
	}
	o.client = client

	if o.limiter == nil {
		if cfg.RateLimit.RequestsPerMinute > 0 {
			o.limiter = ratelimit.PerMinute(cfg.RateLimit.RequestsPerMinute)
		} else {
			o.limiter = ratelimit.Unlimited{}
		}
	}

	o.auth = educabiz.NewAuthenticator(client, nil)
	o.scanner = educabiz.NewGalleryScanner(client, scanMode(cfg.Export.ScanMode), o.limiter)
	o.scanner.SetObserver(pageFanout{o.reporter, o.metrics})
	o.driver = educabiz.NewExportJobDriver(client, educabiz.PollConfig{
		Interval:    cfg.Export.PollInterval,
		Timeout:     cfg.Export.PollTimeout,
		MaxAttempts: cfg.Export.PollMaxAttempts,
	})

	o.storage, err = storage.NewManager(cfg.Output.BaseDirectory, cfg.Output.OverwriteExisting)
	if err != nil {
		return nil, err
	}

	if o.checkpoints == nil {
		o.checkpoints, err = checkpoint.NewManager(cfg.Educabiz.Slug, cfg.Educabiz.ChildID)
		if err != nil {
			return nil, err
		}
	}

	return o, nil
}

func scanMode(mode string) educabiz.ScanMode {
	if mode == config.ScanModeFast {
		return educabiz.ScanFast
	}
	return educabiz.ScanExhaustive
}

// RunOptions selects how a run starts
type RunOptions struct {
	// Resume polls the checkpointed job instead of scanning and submitting
	Resume bool
}

// Run performs one export. The reporter sees exactly one terminal event and
// the metrics textfile, when configured, is written whatever the outcome.
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	result := &Result{
		RunID:     uuid.NewString(),
		StartedAt: o.now().UTC(),
	}
	log := o.logger.WithFields(map[string]interface{}{
		"run_id":   result.RunID,
		"slug":     o.cfg.Educabiz.Slug,
		"child_id": o.cfg.Educabiz.ChildID,
	})

	err := o.run(ctx, opts, result, log)
	result.FinishedAt = o.now().UTC()

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailure
	case result.NoPictures:
		outcome = metrics.OutcomeNoPicture
	}
	o.metrics.RecordRun(outcome, result.StartedAt, result.FinishedAt)
	if werr := o.metrics.WriteTextfile(o.cfg.Metrics.TextfilePath); werr != nil {
		log.WithError(werr).Warn("Failed to write metrics textfile")
	}

	if err != nil {
		log.WithError(err).Error("Export failed")
		o.reporter.Failed(err)
		return result, err
	}

	if result.NoPictures {
		log.Info("No pictures matched the cutoff")
		o.reporter.NoPictures()
		return result, nil
	}

	log.InfoWithFields("Export complete", map[string]interface{}{
		"archive":  result.Archive,
		"bytes":    result.Bytes,
		"pictures": result.Pictures,
		"duration": result.Duration().String(),
	})
	o.reporter.Completed(*result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, opts RunOptions, result *Result, log logger.Logger) error {
	state, err := o.checkpoints.Load()
	if err != nil {
		return err
	}

	o.reporter.Stage(StageAuthenticating, o.cfg.Educabiz.Username)
	logger.LogStage(log, string(StageAuthenticating), nil)
	session, err := o.auth.Authenticate(ctx, o.cfg.Educabiz.Username, o.cfg.Educabiz.Password)
	if err != nil {
		return err
	}

	var (
		handle educabiz.JobHandle
		ids    educabiz.PictureIDSet
	)

	if opts.Resume && state.HasPending() {
		pending := state.Pending
		handle = educabiz.JobHandle{
			NotificationID: pending.NotificationID,
			SubmittedAt:    pending.SubmittedAt,
			PictureCount:   pending.PictureCount,
		}
		result.Resumed = true
		result.ScanMode = educabiz.ScanMode(pending.ScanMode)
		if cutoff, err := config.ParseSince(pending.Cutoff); err != nil {
			log.WithError(err).WithField("cutoff", pending.Cutoff).Warn("Unreadable cutoff in pending job, manifest will omit it")
		} else {
			result.Cutoff = cutoff
		}
		result.Pictures = pending.PictureCount

		o.reporter.Stage(StageResuming, pending.NotificationID)
		logger.LogStage(log, string(StageResuming), map[string]interface{}{
			"job_id":       pending.NotificationID,
			"submitted_at": pending.SubmittedAt,
		})
	} else {
		if opts.Resume {
			log.Warn("No pending export job to resume, starting a new export")
		} else if state.HasPending() {
			log.WithField("job_id", state.Pending.NotificationID).Info("Replacing unfinished export job; use --resume to continue it instead")
		}

		cutoff, err := o.resolveCutoff(state, log)
		if err != nil {
			return err
		}
		result.Cutoff = cutoff
		result.ScanMode = scanMode(o.cfg.Export.ScanMode)

		o.reporter.Stage(StageScanning, cutoff.Format("2006-01-02"))
		logger.LogStage(log, string(StageScanning), map[string]interface{}{
			"cutoff":    cutoff.Format("2006-01-02"),
			"scan_mode": string(result.ScanMode),
		})
		ids, err = o.scanner.Scan(ctx, o.cfg.Educabiz.ChildID, cutoff, session)
		if err != nil {
			return err
		}
		result.Pages = o.scanner.Stats.Pages
		result.Pictures = len(ids)

		if len(ids) == 0 {
			result.NoPictures = true
			return nil
		}
		o.metrics.PicturesQueued(len(ids))

		o.reporter.Stage(StageSubmitting, fmt.Sprintf("%d pictures", len(ids)))
		logger.LogStage(log, string(StageSubmitting), map[string]interface{}{"pictures": len(ids)})
		handle, err = o.driver.Submit(ctx, session, ids)
		if err != nil {
			return err
		}

		if err := o.checkpoints.RecordSubmitted(state, checkpoint.PendingJob{
			NotificationID: handle.NotificationID,
			SubmittedAt:    handle.SubmittedAt,
			PictureCount:   handle.PictureCount,
			Cutoff:         cutoff.Format("2006-01-02"),
			ScanMode:       string(result.ScanMode),
			RunID:          result.RunID,
		}); err != nil {
			log.WithError(err).Warn("Failed to checkpoint export job, it cannot be resumed")
		}
	}
	result.JobID = handle.NotificationID

	o.reporter.Stage(StageWaiting, handle.NotificationID)
	logger.LogStage(log, string(StageWaiting), map[string]interface{}{"job_id": handle.NotificationID})
	location, err := o.driver.AwaitCompletion(ctx, session, handle, progressFanout{o.reporter, o.metrics})
	if err != nil {
		return err
	}
	result.DownloadURL = location

	o.reporter.Stage(StageDownloading, location)
	logger.LogStage(log, string(StageDownloading), map[string]interface{}{"url": location})
	saved, err := o.download(ctx, location)
	if err != nil {
		return err
	}
	result.Archive = saved.Path
	result.Bytes = saved.Bytes
	o.metrics.RecordArchive(saved.Bytes)

	if o.cfg.Output.SaveManifest {
		var cutoffLabel string
		if !result.Cutoff.IsZero() {
			cutoffLabel = result.Cutoff.Format("2006-01-02")
		}
		manifest := &metadata.Manifest{
			RunID:        result.RunID,
			Slug:         o.cfg.Educabiz.Slug,
			ChildID:      o.cfg.Educabiz.ChildID,
			Cutoff:       cutoffLabel,
			ScanMode:     string(result.ScanMode),
			JobID:        result.JobID,
			PictureCount: result.Pictures,
			PictureIDs:   ids,
			Resumed:      result.Resumed,
			ResultURL:    location,
			Archive:      saved.Name,
			Bytes:        saved.Bytes,
			StartedAt:    result.StartedAt,
			FinishedAt:   o.now().UTC(),
		}
		path, err := manifest.Save(saved.Path, o.cfg.Output.ManifestFormat)
		if err != nil {
			log.WithError(err).Warn("Failed to write export manifest")
		} else {
			result.Manifest = path
		}
	}

	// A resumed job only holds pictures that existed when it was submitted
	exportedAt := result.StartedAt
	if result.Resumed {
		exportedAt = handle.SubmittedAt
	}
	if err := o.checkpoints.RecordCompleted(state, exportedAt, saved.Path, result.RunID); err != nil {
		log.WithError(err).Warn("Failed to record completed export")
	}
	return nil
}

// resolveCutoff turns the configured since value into a cutoff date. "last"
// uses the day of the previous successful export, or no filter if there was
// none.
func (o *Orchestrator) resolveCutoff(state *checkpoint.State, log logger.Logger) (time.Time, error) {
	if o.cfg.Export.Since != config.SinceLast {
		return config.ParseSince(o.cfg.Export.Since)
	}

	if cutoff, ok := state.SinceLast(); ok {
		log.WithField("cutoff", cutoff.Format("2006-01-02")).Info("Exporting pictures since the last export")
		return cutoff, nil
	}
	log.Warn("No previous export recorded, exporting the whole gallery")
	return config.ParseSince("")
}

func (o *Orchestrator) download(ctx context.Context, location string) (*storage.SavedFile, error) {
	name, err := storage.FileNameFromURL(location)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.Download(ctx, location)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return o.storage.Save(resp.Body, name, o.reporter.Downloaded)
}
