package educabiz

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/retry"
)

var jobIDPattern = regexp.MustCompile(`setTimeout\(pollNext\(([0-9]{7})\), 1000\)`)

// ProgressObserver follows an export job. Start is called once on the first
// poll, Update on every later poll and Finish when the job completes.
type ProgressObserver interface {
	Start(total, processed int)
	Update(processed int)
	Finish()
}

// PollConfig bounds how long a job is awaited
type PollConfig struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

// DefaultPollConfig polls once a second for up to 30 minutes
func DefaultPollConfig() PollConfig {
	return PollConfig{Interval: time.Second, Timeout: 30 * time.Minute}
}

// ExportJobDriver submits export jobs and waits for their archives
type ExportJobDriver struct {
	client *Client
	poll   PollConfig
	logger logger.Logger
}

// NewExportJobDriver creates a driver
func NewExportJobDriver(client *Client, poll PollConfig) *ExportJobDriver {
	if poll.Interval <= 0 {
		poll.Interval = time.Second
	}
	return &ExportJobDriver{
		client: client,
		poll:   poll,
		logger: client.logger.WithField("component", "export_job"),
	}
}

// Submit schedules a zip export of pictureIDs and returns its handle
func (d *ExportJobDriver) Submit(ctx context.Context, session Session, pictureIDs []string) (JobHandle, error) {
	if !session.IsAuthenticated() {
		return JobHandle{}, errs.Authentication("export requires an authenticated session")
	}
	if len(pictureIDs) == 0 {
		return JobHandle{}, errs.New(errs.ErrorTypeUnknown, 0, "no pictures to export")
	}

	req, err := d.client.newRequest(ctx, http.MethodPost, CreateZipPath, CreateZipForm(pictureIDs), session.Token())
	if err != nil {
		return JobHandle{}, err
	}

	resp, err := d.client.doRequest(req, true)
	if err != nil {
		return JobHandle{}, err
	}
	if err := d.client.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return JobHandle{}, err
	}

	body, err := d.client.readBody(resp)
	if err != nil {
		return JobHandle{}, err
	}

	m := jobIDPattern.FindSubmatch(body)
	if m == nil {
		d.logger.ErrorWithFields("export job id missing from response", map[string]interface{}{
			"body_preview": preview(body),
		})
		return JobHandle{}, errs.Protocol("export job id not found in createzip response")
	}

	handle := JobHandle{
		NotificationID: string(m[1]),
		SubmittedAt:    time.Now().UTC(),
		PictureCount:   len(pictureIDs),
	}
	d.logger.InfoWithFields("export job submitted", map[string]interface{}{
		"job_id":   handle.NotificationID,
		"pictures": handle.PictureCount,
	})
	return handle, nil
}

// Progress fetches the job's progress once
func (d *ExportJobDriver) Progress(ctx context.Context, session Session, handle JobHandle) (*JobProgress, error) {
	req, err := d.client.newRequest(ctx, http.MethodGet, GetProgressPath(handle.NotificationID), "", session.Token())
	if err != nil {
		return nil, err
	}

	resp, err := d.client.doRequest(req, true)
	if err != nil {
		return nil, err
	}
	if err := d.client.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}

	var progress JobProgress
	if err := d.client.decodeJSON(resp, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// AwaitCompletion polls the job at a fixed interval until it finishes and
// returns the decoded, absolute archive URL. Exceeding the configured
// timeout or attempt cap yields a timeout error.
func (d *ExportJobDriver) AwaitCompletion(ctx context.Context, session Session, handle JobHandle, observer ProgressObserver) (string, error) {
	if !session.IsAuthenticated() {
		return "", errs.Authentication("export requires an authenticated session")
	}
	if observer == nil {
		observer = nopObserver{}
	}

	var location string
	started := false

	cfg := retry.FixedInterval(d.poll.Interval, d.poll.MaxAttempts, d.poll.Timeout)
	cfg.Logger = d.logger

	err := retry.Poll(ctx, cfg, func(ctx context.Context, attempt int) (bool, error) {
		progress, err := d.Progress(ctx, session, handle)
		if err != nil {
			return false, err
		}

		if !started {
			observer.Start(progress.Total, progress.Processed)
			started = true
		} else {
			observer.Update(progress.Processed)
		}
		logger.LogJobProgress(d.logger, handle.NotificationID, progress.Processed, progress.Total)

		if !progress.Finished {
			return false, nil
		}
		observer.Finish()

		location, err = d.resolveLocation(progress.ResultLocation())
		return true, err
	})
	if err != nil {
		if errs.IsType(err, errs.ErrorTypeTimeout) {
			d.logger.ErrorWithFields("export job did not finish in time", map[string]interface{}{
				"job_id":  handle.NotificationID,
				"timeout": d.poll.Timeout,
			})
		}
		return "", err
	}

	return location, nil
}

// resolveLocation percent-decodes the raw location and makes it absolute
func (d *ExportJobDriver) resolveLocation(raw string) (string, error) {
	if raw == "" {
		return "", errs.Resolution("unable to determine download URL")
	}

	decoded := unescapeLocation(raw)
	absolute, err := d.client.ResolveURL(escapeStrayPercent(decoded))
	if err != nil {
		return "", errs.Wrap(errs.ErrorTypeResolution, err, "invalid download URL %q", decoded)
	}
	return absolute, nil
}

// unescapeLocation decodes every well-formed %XX sequence and keeps
// malformed ones as they are.
func unescapeLocation(raw string) string {
	if decoded, err := url.PathUnescape(raw); err == nil {
		return decoded
	}

	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '%' && i+2 < len(raw) && isHex(raw[i+1]) && isHex(raw[i+2]) {
			b.WriteByte(unhex(raw[i+1])<<4 | unhex(raw[i+2]))
			i += 2
			continue
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

// escapeStrayPercent rewrites a '%' that does not start an escape as %25 so
// the location still parses as a URL.
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && !(i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}

type nopObserver struct{}

func (nopObserver) Start(total, processed int) {}
func (nopObserver) Update(processed int)       {}
func (nopObserver) Finish()                    {}
