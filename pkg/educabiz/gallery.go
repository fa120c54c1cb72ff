package educabiz

import (
	"context"
	"net/http"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"
	"educabiz-exporter/pkg/ratelimit"
)

// ScanMode selects how far the gallery feed is walked
type ScanMode string

const (
	// ScanExhaustive walks every page until the feed is empty and filters client side
	ScanExhaustive ScanMode = "exhaustive"
	// ScanFast stops after the first page holding a record older than the cutoff.
	// It relies on the feed being ordered newest first.
	ScanFast ScanMode = "fast"
)

// PageObserver is told about every processed gallery page
type PageObserver interface {
	PageScanned(page, onPage, kept, total int)
}

// ScanStats summarizes a finished scan
type ScanStats struct {
	Pages     int
	Records   int
	Kept      int
	Skipped   int
	Undated   int
	EarlyStop bool
}

// GalleryScanner collects picture ids from a child's gallery feed
type GalleryScanner struct {
	client   *Client
	mode     ScanMode
	limiter  ratelimit.Limiter
	observer PageObserver
	logger   logger.Logger

	// stats of the last scan
	Stats ScanStats
}

// NewGalleryScanner creates a scanner. A nil limiter disables pacing.
func NewGalleryScanner(client *Client, mode ScanMode, limiter ratelimit.Limiter) *GalleryScanner {
	if mode == "" {
		mode = ScanExhaustive
	}
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &GalleryScanner{
		client:  client,
		mode:    mode,
		limiter: limiter,
		logger:  client.logger.WithField("component", "gallery"),
	}
}

// SetObserver registers a page observer
func (s *GalleryScanner) SetObserver(o PageObserver) {
	s.observer = o
}

// Scan walks pages 1, 2, ... and returns the ids of every record dated on or
// after cutoff, in page then record order. An empty page ends the feed. Any
// non-200 page aborts the scan with a gallery fetch error.
func (s *GalleryScanner) Scan(ctx context.Context, childID string, cutoff time.Time, session Session) (PictureIDSet, error) {
	if !session.IsAuthenticated() {
		return nil, errs.Authentication("gallery requires an authenticated session")
	}

	s.Stats = ScanStats{}
	ids := PictureIDSet{}

	for page := 1; ; page++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		gallery, err := s.fetchPage(ctx, childID, page, session)
		if err != nil {
			return nil, err
		}
		s.Stats.Pages = page

		if len(gallery.Pictures) == 0 {
			s.logger.DebugWithFields("end of gallery feed", map[string]interface{}{"page": page})
			break
		}

		kept, sawOlder := s.filter(gallery.Pictures, cutoff, page)
		ids = append(ids, kept...)

		s.Stats.Records += len(gallery.Pictures)
		s.Stats.Kept += len(kept)
		s.Stats.Skipped += len(gallery.Pictures) - len(kept)

		logger.LogPageScanned(s.logger, page, len(gallery.Pictures), len(kept))
		if s.observer != nil {
			s.observer.PageScanned(page, len(gallery.Pictures), len(kept), len(ids))
		}

		if sawOlder && s.mode == ScanFast {
			s.logger.InfoWithFields("no later page can hold pictures after the cutoff", map[string]interface{}{
				"page":   page,
				"cutoff": cutoff.Format("2006-01-02"),
			})
			s.Stats.EarlyStop = true
			break
		}
	}

	return ids, nil
}

// filter keeps records dated on or after cutoff. Records whose date cannot be
// parsed are kept and do not count as older than the cutoff.
func (s *GalleryScanner) filter(pictures []Picture, cutoff time.Time, page int) ([]string, bool) {
	kept := make([]string, 0, len(pictures))
	sawOlder := false

	for _, p := range pictures {
		date, err := p.Date()
		if err != nil {
			s.Stats.Undated++
			s.logger.WarnWithFields("unparsable picture date, keeping picture", map[string]interface{}{
				"page":       page,
				"short_date": p.ShortDate,
				"picture_id": p.ImgLargeID,
			})
			kept = append(kept, p.ImgLargeID)
			continue
		}
		if date.Before(cutoff) {
			sawOlder = true
			continue
		}
		kept = append(kept, p.ImgLargeID)
	}

	return kept, sawOlder
}

func (s *GalleryScanner) fetchPage(ctx context.Context, childID string, page int, session Session) (*GalleryPage, error) {
	req, err := s.client.newRequest(ctx, http.MethodPost, GalleryPath, GalleryForm(childID, page), session.Token())
	if err != nil {
		return nil, err
	}

	resp, err := s.client.doRequest(req, true)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		s.logger.ErrorWithFields("gallery page request failed", map[string]interface{}{
			"page":      page,
			"status":    resp.StatusCode,
			"retryable": errs.IsRetryableStatusCode(resp.StatusCode),
		})
		return nil, errs.GalleryFetch(page, resp.StatusCode)
	}

	var gallery GalleryPage
	if err := s.client.decodeJSON(resp, &gallery); err != nil {
		return nil, err
	}
	return &gallery, nil
}
