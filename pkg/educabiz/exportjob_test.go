package educabiz

import (
	"context"
	"testing"
	"time"

	"educabiz-exporter/internal/testportal"
	errs "educabiz-exporter/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPoll() PollConfig {
	return PollConfig{Interval: 5 * time.Millisecond, Timeout: 5 * time.Second}
}

func TestSubmitSendsIdsInOrder(t *testing.T) {
	p := startPortal(t)
	c := newPortalClient(t, p)
	session := login(t, c, p)

	handle, err := NewExportJobDriver(c, fastPoll()).Submit(context.Background(), session, []string{"9", "3", "9"})

	require.NoError(t, err)
	assert.Equal(t, testportal.DefaultJobID, handle.NotificationID)
	assert.Equal(t, 3, handle.PictureCount)
	assert.Equal(t, [][]string{{"9", "3", "9"}}, p.Submissions())
}

func TestSubmitMissingJobID(t *testing.T) {
	p := startPortal(t)
	p.OmitJobID = true
	c := newPortalClient(t, p)
	session := login(t, c, p)

	_, err := NewExportJobDriver(c, fastPoll()).Submit(context.Background(), session, []string{"1"})

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeProtocol))
}

func TestSubmitRejectsEmptySet(t *testing.T) {
	p := startPortal(t)
	c := newPortalClient(t, p)
	session := login(t, c, p)

	_, err := NewExportJobDriver(c, fastPoll()).Submit(context.Background(), session, nil)

	assert.Error(t, err)
	assert.Empty(t, p.Submissions())
}

func TestAwaitCompletionDecodesLocation(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{
		{Processed: 0, Total: 10},
		{Processed: 10, Total: 10, Finished: true, ResultLocation: "http%3A%2F%2Fh%2Ff.zip"},
	}
	c := newPortalClient(t, p)
	session := login(t, c, p)
	driver := NewExportJobDriver(c, fastPoll())

	handle, err := driver.Submit(context.Background(), session, []string{"1"})
	require.NoError(t, err)

	obs := &recordingObserver{}
	location, err := driver.AwaitCompletion(context.Background(), session, handle, obs)

	require.NoError(t, err)
	assert.Equal(t, "http://h/f.zip", location)
	assert.Equal(t, 2, p.ProgressPolls())
	assert.Equal(t, [][2]int{{10, 0}}, obs.starts)
	assert.Equal(t, []int{10}, obs.updates)
	assert.Equal(t, 1, obs.finish)
}

func TestAwaitCompletionResolvesRelativeLocation(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{{Processed: 1, Total: 1, Finished: true, ResultLocation: "%2Ffiles%2Fa%20b.zip"}}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	location, err := NewExportJobDriver(c, fastPoll()).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)

	require.NoError(t, err)
	assert.Equal(t, p.URL()+"/files/a%20b.zip", location)
}

func TestAwaitCompletionKeepsMalformedEscapes(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{{Processed: 1, Total: 1, Finished: true, ResultLocation: "http%3A%2F%2Fh%2F100%25_f%zz.zip"}}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	location, err := NewExportJobDriver(c, fastPoll()).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)

	require.NoError(t, err)
	assert.Equal(t, "http://h/100%25_f%25zz.zip", location)
}

func TestUnescapeLocation(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http%3A%2F%2Fh%2Ff.zip", "http://h/f.zip"},
		{"a%20b%zz", "a b%zz"},
		{"100%", "100%"},
		{"%4", "%4"},
		{"%41%g1%42", "A%g1B"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, unescapeLocation(tt.raw))
		})
	}
}

func TestAwaitCompletionMissingLocation(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{{Processed: 5, Total: 5, Finished: true}}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	obs := &recordingObserver{}
	location, err := NewExportJobDriver(c, fastPoll()).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, obs)

	require.Error(t, err)
	assert.Empty(t, location)
	assert.True(t, errs.IsType(err, errs.ErrorTypeResolution))
	assert.Contains(t, err.Error(), "unable to determine download URL")
	assert.Equal(t, 1, obs.finish)
}

func TestAwaitCompletionAttemptCap(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{{Processed: 1, Total: 10}}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	poll := fastPoll()
	poll.MaxAttempts = 3
	_, err := NewExportJobDriver(c, poll).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTimeout))
	assert.Equal(t, 3, p.ProgressPolls())
}

func TestAwaitCompletionTimeout(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{{Processed: 1, Total: 10}}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	poll := PollConfig{Interval: 5 * time.Millisecond, Timeout: 40 * time.Millisecond}
	_, err := NewExportJobDriver(c, poll).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeTimeout))
}

func TestAwaitCompletionProgressError(t *testing.T) {
	p := startPortal(t)
	p.ProgressStatus = 500
	c := newPortalClient(t, p)
	session := login(t, c, p)

	_, err := NewExportJobDriver(c, fastPoll()).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(err))
	assert.Equal(t, 1, p.ProgressPolls())
}

func TestDownloadStreamsArchive(t *testing.T) {
	p := startPortal(t)
	p.Progress = []testportal.Progress{p.Finished(3)}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	location, err := NewExportJobDriver(c, fastPoll()).AwaitCompletion(context.Background(), session, JobHandle{NotificationID: p.JobID}, nil)
	require.NoError(t, err)

	resp, err := c.Download(context.Background(), location)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "/files/export photos.zip", resp.Request.URL.Path)
	assert.Equal(t, 1, p.Downloads())
}
