package educabiz

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(req *http.Request, statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
}

func newMockClient(t *testing.T, handler func(req *http.Request) (*http.Response, error)) *Client {
	t.Helper()
	hc := &http.Client{Transport: &mockRoundTripper{handler: handler}, Timeout: 5 * time.Second}
	c, err := NewClient("https://happykids.educabiz.com", 5*time.Second,
		WithHTTPClient(hc), WithLogger(logger.NewTestLogger()))
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	c, err := NewClient("https://happykids.educabiz.com/", 30*time.Second, WithUserAgent("ebexport-test"))
	require.NoError(t, err)
	assert.Equal(t, "https://happykids.educabiz.com", c.BaseURL())
	assert.Equal(t, "ebexport-test", c.headers["User-Agent"])
	assert.NotNil(t, c.noRedirect.CheckRedirect)

	_, err = NewClient("happykids.educabiz.com", time.Second)
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	c, err := NewClient("https://happykids.educabiz.com", time.Second)
	require.NoError(t, err)

	tests := []struct {
		ref  string
		want string
	}{
		{"/files/a.zip", "https://happykids.educabiz.com/files/a.zip"},
		{"https://cdn.example.com/x/b.zip", "https://cdn.example.com/x/b.zip"},
		{"files/c.zip", "https://happykids.educabiz.com/files/c.zip"},
	}
	for _, tt := range tests {
		got, err := c.ResolveURL(tt.ref)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestDoRequestSetsHeaders(t *testing.T) {
	var seen *http.Request
	c := newMockClient(t, func(req *http.Request) (*http.Response, error) {
		seen = req
		return newResponse(req, http.StatusOK, "{}"), nil
	})

	req, err := c.newRequest(context.Background(), http.MethodPost, GalleryPath, GalleryForm("7", 1), "PLAY_SESSION=x")
	require.NoError(t, err)
	resp, err := c.doRequest(req, true)
	require.NoError(t, err)
	resp.Body.Close()

	require.NotNil(t, seen)
	assert.Equal(t, "application/x-www-form-urlencoded; charset=UTF-8", seen.Header.Get("Content-Type"))
	assert.Equal(t, "PLAY_SESSION=x", seen.Header.Get("Cookie"))
	assert.Equal(t, DefaultUserAgent, seen.Header.Get("User-Agent"))

	body, _ := io.ReadAll(seen.Body)
	assert.Equal(t, "childId=7&page=1", string(body))
}

func TestDoRequestNetworkError(t *testing.T) {
	c := newMockClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	req, err := c.newRequest(context.Background(), http.MethodGet, RootPath, "", "")
	require.NoError(t, err)
	_, err = c.doRequest(req, true)

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeNetwork, errs.TypeOf(err))
}

func TestCheckResponseStatus(t *testing.T) {
	c := newMockClient(t, nil)
	req, _ := http.NewRequest(http.MethodGet, "https://happykids.educabiz.com/x", nil)

	tests := []struct {
		status int
		want   errs.ErrorType
	}{
		{http.StatusForbidden, errs.ErrorTypeAuth},
		{http.StatusNotFound, errs.ErrorTypeNotFound},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit},
		{http.StatusBadGateway, errs.ErrorTypeServerError},
		{http.StatusFound, errs.ErrorTypeUnknown},
	}
	for _, tt := range tests {
		err := c.checkResponseStatus(newResponse(req, tt.status, ""))
		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.want, errs.TypeOf(err), "status %d", tt.status)
	}
	assert.NoError(t, c.checkResponseStatus(newResponse(req, http.StatusOK, "")))
}

func TestDecodeJSONParsingError(t *testing.T) {
	log := logger.NewTestLogger()
	c := newMockClient(t, nil)
	c.logger = log
	req, _ := http.NewRequest(http.MethodGet, "https://happykids.educabiz.com/x", nil)

	var out GalleryPage
	err := c.decodeJSON(newResponse(req, http.StatusOK, "<html>"+strings.Repeat("x", 500)), &out)

	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeParsing, errs.TypeOf(err))
	msgs := log.GetMessagesByLevel("ERROR")
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasSuffix(msgs[0].Fields["body_preview"].(string), "..."))
}

func TestForms(t *testing.T) {
	assert.Equal(t, "isAlbum=false&pictureId%5B%5D=9&pictureId%5B%5D=3&pictureId%5B%5D=9",
		CreateZipForm([]string{"9", "3", "9"}))
	assert.Equal(t, "authenticityToken=tok&password=p%26w&username=u%40x",
		LoginForm("tok", "u@x", "p&w"))
	assert.Equal(t, "/notifications/1234567/progress", GetProgressPath("1234567"))
}
