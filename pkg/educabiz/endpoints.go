package educabiz

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// RootPath serves the login page with the anonymous session and CSRF token
	RootPath = "/"

	// AuthenticatePath accepts the login form
	AuthenticatePath = "/authenticate"

	// GalleryPath returns one page of a child's gallery as JSON
	GalleryPath = "/childctrl/childgalleryloadmore"

	// CreateZipPath schedules an export job
	CreateZipPath = "/schoolctrl/createzip"

	// ProgressPathFormat reports an export job's progress
	ProgressPathFormat = "/notifications/%s/progress"

	// SessionCookieName is the portal's session cookie
	SessionCookieName = "PLAY_SESSION"
)

// GetProgressPath builds the progress path for a job
func GetProgressPath(jobID string) string {
	return fmt.Sprintf(ProgressPathFormat, url.PathEscape(jobID))
}

// LoginForm encodes the credentials form
func LoginForm(csrfToken, username, password string) string {
	params := url.Values{}
	params.Set("authenticityToken", csrfToken)
	params.Set("username", username)
	params.Set("password", password)
	return params.Encode()
}

// GalleryForm encodes a gallery page request
func GalleryForm(childID string, page int) string {
	params := url.Values{}
	params.Set("childId", childID)
	params.Set("page", strconv.Itoa(page))
	return params.Encode()
}

// CreateZipForm encodes an export request. Picture ids keep their order.
func CreateZipForm(pictureIDs []string) string {
	params := url.Values{}
	params.Set("isAlbum", "false")
	params["pictureId[]"] = append([]string(nil), pictureIDs...)
	return params.Encode()
}
