package educabiz

import (
	"context"
	"testing"
	"time"

	"educabiz-exporter/internal/testportal"
	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cutoff2024 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type pageRecorder struct{ totals []int }

func (r *pageRecorder) PageScanned(page, onPage, kept, total int) { r.totals = append(r.totals, total) }

func TestScanFastStopsAfterOlderRecord(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{
		pics("05-06-2024", "A", "01-01-2020", "B"),
		pics("01-02-2024", "C"),
	}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	scanner := NewGalleryScanner(c, ScanFast, nil)
	ids, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, PictureIDSet{"A"}, ids)
	assert.Equal(t, []int{1}, p.GalleryRequests())
	assert.True(t, scanner.Stats.EarlyStop)
}

func TestScanExhaustiveFiltersEveryPage(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{
		pics("05-06-2024", "A", "01-01-2020", "B"),
		pics("01-02-2024", "C", "31-12-2023", "D"),
	}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	scanner := NewGalleryScanner(c, ScanExhaustive, nil)
	ids, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, PictureIDSet{"A", "C"}, ids)
	assert.Equal(t, []int{1, 2, 3}, p.GalleryRequests())
	assert.Equal(t, 3, scanner.Stats.Pages)
	assert.Equal(t, 2, scanner.Stats.Skipped)
	assert.False(t, scanner.Stats.EarlyStop)
}

func TestScanIsIdempotent(t *testing.T) {
	tests := []struct {
		name     string
		mode     ScanMode
		want     PictureIDSet
		requests []int
	}{
		{"fast", ScanFast, PictureIDSet{"A"}, []int{1, 1}},
		{"exhaustive", ScanExhaustive, PictureIDSet{"A", "C"}, []int{1, 2, 3, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := startPortal(t)
			p.Pages = [][]testportal.Picture{
				pics("05-06-2024", "A", "01-01-2020", "B"),
				pics("01-02-2024", "C", "31-12-2023", "D"),
			}
			c := newPortalClient(t, p)
			session := login(t, c, p)
			scanner := NewGalleryScanner(c, tt.mode, nil)

			first, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)
			require.NoError(t, err)
			firstStats := scanner.Stats

			second, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)
			require.NoError(t, err)

			assert.Equal(t, tt.want, first)
			assert.Equal(t, first, second)
			assert.Equal(t, firstStats, scanner.Stats)
			assert.Equal(t, tt.requests, p.GalleryRequests())
		})
	}
}

func TestScanCutoffIsInclusive(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{pics("01-01-2024", "A", "31-12-2023", "B")}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	ids, err := NewGalleryScanner(c, ScanFast, nil).Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, PictureIDSet{"A"}, ids)
}

func TestScanEmptyFirstPage(t *testing.T) {
	p := startPortal(t)
	c := newPortalClient(t, p)
	session := login(t, c, p)

	ids, err := NewGalleryScanner(c, ScanExhaustive, nil).Scan(context.Background(), p.ChildID, time.Unix(0, 0).UTC(), session)

	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)
	assert.Equal(t, []int{1}, p.GalleryRequests())
}

func TestScanPreservesOrderAndDuplicates(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{
		pics("03-03-2024", "X", "02-03-2024", "Y"),
		pics("01-03-2024", "X"),
	}
	c := newPortalClient(t, p)
	session := login(t, c, p)
	scanner := NewGalleryScanner(c, ScanExhaustive, nil)

	first, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)
	require.NoError(t, err)
	second, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)
	require.NoError(t, err)

	assert.Equal(t, PictureIDSet{"X", "Y", "X"}, first)
	assert.Equal(t, first, second)
}

func TestScanPageErrorAborts(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{pics("05-06-2024", "A"), pics("05-05-2024", "B"), pics("05-04-2024", "C")}
	p.PageStatus[2] = 502
	c := newPortalClient(t, p)
	session := login(t, c, p)

	ids, err := NewGalleryScanner(c, ScanExhaustive, nil).Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.Error(t, err)
	assert.Nil(t, ids)
	assert.True(t, errs.IsType(err, errs.ErrorTypeGalleryFetch))
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, []int{1, 2}, p.GalleryRequests())
}

func TestScanUnparsableDateIsKept(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{pics("yesterday", "A", "05-06-2024", "B")}
	c := newPortalClient(t, p)
	log := logger.NewTestLogger()
	c.logger = log
	session := login(t, c, p)

	scanner := NewGalleryScanner(c, ScanFast, nil)
	ids, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, PictureIDSet{"A", "B"}, ids)
	assert.Equal(t, 1, scanner.Stats.Undated)
	assert.Len(t, log.GetMessagesByLevel("WARN"), 1)
	// No older record was seen, so fast mode keeps paging until the empty page
	assert.Equal(t, []int{1, 2}, p.GalleryRequests())
}

func TestScanRequiresAuthenticatedSession(t *testing.T) {
	p := startPortal(t)
	c := newPortalClient(t, p)

	_, err := NewGalleryScanner(c, ScanExhaustive, nil).Scan(context.Background(), p.ChildID, cutoff2024, AnonymousSession("PLAY_SESSION=x"))

	assert.True(t, errs.IsType(err, errs.ErrorTypeAuth))
	assert.Empty(t, p.GalleryRequests())
}

func TestScanNotifiesObserver(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{pics("05-06-2024", "A", "04-06-2024", "B"), pics("03-06-2024", "C")}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	rec := &pageRecorder{}
	scanner := NewGalleryScanner(c, ScanExhaustive, nil)
	scanner.SetObserver(rec)
	_, err := scanner.Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, rec.totals)
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Allow() bool { return true }
func (l *countingLimiter) Wait(ctx context.Context) error {
	l.waits++
	return ctx.Err()
}
func (l *countingLimiter) Reset() {}

func TestScanIsPacedPerPage(t *testing.T) {
	p := startPortal(t)
	p.Pages = [][]testportal.Picture{pics("05-06-2024", "A"), pics("04-06-2024", "B")}
	c := newPortalClient(t, p)
	session := login(t, c, p)

	limiter := &countingLimiter{}
	_, err := NewGalleryScanner(c, ScanExhaustive, limiter).Scan(context.Background(), p.ChildID, cutoff2024, session)

	require.NoError(t, err)
	assert.Equal(t, 3, limiter.waits)
}

func TestPictureDate(t *testing.T) {
	d, err := Picture{ShortDate: "29-02-2024"}.Date()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = Picture{ShortDate: "2024-02-29"}.Date()
	assert.Error(t, err)
}
