package educabiz

import "time"

// ShortDateLayout is the gallery's DD-MM-YYYY date format
const ShortDateLayout = "02-01-2006"

// GalleryPage is one page of the gallery feed
type GalleryPage struct {
	Pictures []Picture `json:"pictures"`
}

// Picture is a gallery record. Only the fields used for export are decoded.
type Picture struct {
	ShortDate  string `json:"shortDate"`
	ImgLargeID string `json:"imgLargeId"`
}

// Date parses ShortDate as a UTC calendar date
func (p Picture) Date() (time.Time, error) {
	return time.ParseInLocation(ShortDateLayout, p.ShortDate, time.UTC)
}

// JobProgress is the progress resource of an export job
type JobProgress struct {
	Processed int         `json:"processed"`
	Total     int         `json:"total"`
	Finished  bool        `json:"finished"`
	Details   *JobDetails `json:"details,omitempty"`
}

// JobDetails carries the result of a finished job
type JobDetails struct {
	// ResultLocation is percent-encoded
	ResultLocation string `json:"resultLocation"`
}

// ResultLocation returns the raw location or "" when absent
func (p JobProgress) ResultLocation() string {
	if p.Details == nil {
		return ""
	}
	return p.Details.ResultLocation
}

// JobHandle identifies a submitted export job
type JobHandle struct {
	NotificationID string    `json:"notification_id"`
	SubmittedAt    time.Time `json:"submitted_at"`
	PictureCount   int       `json:"picture_count"`
}

// PictureIDSet is the ordered, duplicate-tolerant list of ids to export
type PictureIDSet []string
