// Package testportal is an in-process fake of the child-care portal used by
// tests. It implements the login, gallery, export and download endpoints
// with just enough fidelity to exercise the client end to end.
package testportal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	AnonymousSession     = "PLAY_SESSION=anon0123456789"
	AuthenticatedSession = "PLAY_SESSION=auth9876543210"
	CSRFToken            = "0f1e2d3c4b5a"
	DefaultJobID         = "1234567"
	DefaultZipPath       = "/files/export photos.zip"
)

// Picture mirrors a gallery record
type Picture struct {
	ShortDate  string `json:"shortDate"`
	ImgLargeID string `json:"imgLargeId"`
}

// Progress is one step of an export job's progress sequence
type Progress struct {
	Processed int
	Total     int
	Finished  bool
	// ResultLocation is served as-is; use url.QueryEscape for realism
	ResultLocation string
}

// Portal simulates one deployment
type Portal struct {
	Username string
	Password string
	ChildID  string

	// Pages holds the gallery feed; page N is Pages[N-1], later pages are empty
	Pages [][]Picture
	// PageStatus forces a status code for a page index
	PageStatus map[int]int

	// Progress is replayed one entry per poll; the last entry repeats
	Progress []Progress
	JobID    string

	ZipPath string
	ZipBody []byte

	// Failure switches
	OmitCSRF        bool
	OmitJobID       bool
	ReuseSession    bool
	CreateZipStatus int
	ProgressStatus  int
	DownloadStatus  int

	server *httptest.Server
	mu     sync.Mutex

	galleryPages  []int
	submissions   [][]string
	loginCookies  []string
	progressPolls int32
	downloads     int32
}

// New returns a portal with a default account and an empty feed
func New() *Portal {
	return &Portal{
		Username:   "parent@example.com",
		Password:   "secret",
		ChildID:    "4242",
		PageStatus: map[int]int{},
		JobID:      DefaultJobID,
		ZipPath:    DefaultZipPath,
		ZipBody:    []byte("PK\x03\x04fake zip"),
	}
}

// Start launches the HTTP server
func (p *Portal) Start() *Portal {
	p.server = httptest.NewServer(p.Handler())
	return p
}

// URL returns the server root
func (p *Portal) URL() string {
	return p.server.URL
}

// Close shuts the server down
func (p *Portal) Close() {
	if p.server != nil {
		p.server.Close()
	}
}

// Finished is a convenience progress step pointing at the default archive
func (p *Portal) Finished(total int) Progress {
	return Progress{
		Processed:      total,
		Total:          total,
		Finished:       true,
		ResultLocation: url.QueryEscape(p.URL() + p.escapedZipPath()),
	}
}

func (p *Portal) escapedZipPath() string {
	return (&url.URL{Path: p.ZipPath}).EscapedPath()
}

// Handler exposes the portal routes
func (p *Portal) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", p.handleRoot)
	mux.HandleFunc("POST /authenticate", p.handleAuthenticate)
	mux.HandleFunc("POST /childctrl/childgalleryloadmore", p.handleGallery)
	mux.HandleFunc("POST /schoolctrl/createzip", p.handleCreateZip)
	mux.HandleFunc("GET /notifications/{id}/progress", p.handleProgress)
	mux.HandleFunc("GET /files/", p.handleDownload)
	return mux
}

func (p *Portal) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Set-Cookie", "PLAY_FLASH=; Version=1; Path=/")
	w.Header().Add("Set-Cookie", AnonymousSession+"; Version=1; Path=/; HTTPOnly")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	fmt.Fprintln(w, "<html><body><form action=\"/authenticate\" method=\"post\">")
	if !p.OmitCSRF {
		fmt.Fprintf(w, "<input type=\"hidden\" name=\"authenticityToken\" value=\"%s\">\n", CSRFToken)
	}
	fmt.Fprintln(w, "</form></body></html>")
}

func (p *Portal) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	cookie := r.Header.Get("Cookie")
	p.mu.Lock()
	p.loginCookies = append(p.loginCookies, cookie)
	p.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	wantCookie := "PLAY_SESSION='" + AnonymousSession + "-___AT=" + CSRFToken + "'"
	valid := cookie == wantCookie &&
		r.PostForm.Get("authenticityToken") == CSRFToken &&
		r.PostForm.Get("username") == p.Username &&
		r.PostForm.Get("password") == p.Password

	if !valid {
		w.Header().Add("Set-Cookie", "PLAY_FLASH=\"error:security.forbidden.unknown\"; Version=1; Path=/")
		w.Header().Add("Set-Cookie", AnonymousSession+"; Version=1; Path=/; HTTPOnly")
		w.Header().Set("Location", "/")
		w.WriteHeader(http.StatusFound)
		return
	}

	session := AuthenticatedSession
	if p.ReuseSession {
		session = AnonymousSession
	}
	w.Header().Add("Set-Cookie", session+"; Version=1; Path=/; HTTPOnly")
	// A followed redirect would land on a page that sets no session cookie
	w.Header().Set("Location", "/")
	w.WriteHeader(http.StatusFound)
}

func (p *Portal) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Cookie") != AuthenticatedSession {
		http.Error(w, "forbidden", http.StatusForbidden)
		return false
	}
	return true
}

func (p *Portal) handleGallery(w http.ResponseWriter, r *http.Request) {
	if !p.authorized(w, r) {
		return
	}
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		http.Error(w, "unsupported content type", http.StatusUnsupportedMediaType)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	page, err := strconv.Atoi(r.PostForm.Get("page"))
	if err != nil || page < 1 {
		http.Error(w, "bad page", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.galleryPages = append(p.galleryPages, page)
	p.mu.Unlock()

	if status, ok := p.PageStatus[page]; ok {
		w.WriteHeader(status)
		return
	}

	pictures := []Picture{}
	if r.PostForm.Get("childId") == p.ChildID && page <= len(p.Pages) {
		pictures = p.Pages[page-1]
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"pictures": pictures})
}

func (p *Portal) handleCreateZip(w http.ResponseWriter, r *http.Request) {
	if !p.authorized(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if r.PostForm.Get("isAlbum") != "false" {
		http.Error(w, "isAlbum must be false", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	p.submissions = append(p.submissions, r.PostForm["pictureId[]"])
	p.mu.Unlock()

	if p.CreateZipStatus != 0 {
		w.WriteHeader(p.CreateZipStatus)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintln(w, "<div class=\"notification\">Preparing zip</div>")
	if !p.OmitJobID {
		fmt.Fprintf(w, "<script>setTimeout(pollNext(%s), 1000);</script>\n", p.JobID)
	}
}

func (p *Portal) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !p.authorized(w, r) {
		return
	}
	if r.PathValue("id") != p.JobID {
		http.NotFound(w, r)
		return
	}

	n := int(atomic.AddInt32(&p.progressPolls, 1))
	if p.ProgressStatus != 0 {
		w.WriteHeader(p.ProgressStatus)
		return
	}
	if len(p.Progress) == 0 {
		http.Error(w, "no job", http.StatusNotFound)
		return
	}

	step := p.Progress[len(p.Progress)-1]
	if n <= len(p.Progress) {
		step = p.Progress[n-1]
	}

	body := map[string]interface{}{
		"processed": step.Processed,
		"total":     step.Total,
		"finished":  step.Finished,
	}
	if step.ResultLocation != "" {
		body["details"] = map[string]interface{}{"resultLocation": step.ResultLocation}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(body)
}

func (p *Portal) handleDownload(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt32(&p.downloads, 1)
	if p.DownloadStatus != 0 {
		w.WriteHeader(p.DownloadStatus)
		return
	}
	if r.URL.Path != p.ZipPath {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Length", strconv.Itoa(len(p.ZipBody)))
	w.Write(p.ZipBody)
}

// GalleryRequests returns the page indexes requested, in order
func (p *Portal) GalleryRequests() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.galleryPages...)
}

// Submissions returns the picture id lists of every createzip call
func (p *Portal) Submissions() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]string, len(p.submissions))
	copy(out, p.submissions)
	return out
}

// LoginCookies returns the Cookie headers presented to /authenticate
func (p *Portal) LoginCookies() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loginCookies...)
}

// ProgressPolls returns how many times progress was fetched
func (p *Portal) ProgressPolls() int {
	return int(atomic.LoadInt32(&p.progressPolls))
}

// Downloads returns how many archive downloads were served
func (p *Portal) Downloads() int {
	return int(atomic.LoadInt32(&p.downloads))
}
