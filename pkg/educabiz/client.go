package educabiz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"
)

const (
	// DefaultUserAgent is sent when no override is configured
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

	formContentType = "application/x-www-form-urlencoded; charset=UTF-8"

	// maxBodyPreview bounds how much of an unexpected body ends up in logs
	maxBodyPreview = 200
)

// Client talks to a single portal deployment
type Client struct {
	httpClient *http.Client
	noRedirect *http.Client
	baseURL    *url.URL
	headers    map[string]string
	logger     logger.Logger
}

// ClientOption customizes a Client
type ClientOption func(*Client)

// WithHTTPClient swaps the transport, mostly for tests. Redirect suppression
// for the login call is layered on top of the given client's transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(log logger.Logger) ClientOption {
	return func(c *Client) {
		c.logger = log
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.headers["User-Agent"] = ua
		}
	}
}

// NewClient creates a client for the deployment rooted at baseURL
func NewClient(baseURL string, timeout time.Duration, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    u,
		headers: map[string]string{
			"User-Agent":      DefaultUserAgent,
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		},
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.NewNopLogger()
	}

	c.noRedirect = &http.Client{
		Transport: c.httpClient.Transport,
		Timeout:   c.httpClient.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return c, nil
}

// BaseURL returns the deployment root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// ResolveURL resolves ref against the deployment root. Absolute references
// are returned unchanged.
func (c *Client) ResolveURL(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return c.baseURL.ResolveReference(u).String(), nil
}

// newRequest builds a request for a path on the deployment. A non-empty body
// is sent as a url-encoded form; a non-empty cookie is sent verbatim.
func (c *Client) newRequest(ctx context.Context, method, path string, body string, cookie string) (*http.Request, error) {
	target, err := c.ResolveURL(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to build URL for %s", path)
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	if body != "" || method == http.MethodPost {
		req.Header.Set("Content-Type", formContentType)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request, followRedirects bool) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	hc := c.httpClient
	if !followRedirects {
		hc = c.noRedirect
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := hc.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "%s %s", req.Method, req.URL.Path)
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, float64(duration.Microseconds())/1000)
	return resp, nil
}

// checkResponseStatus maps non-success statuses to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return errs.New(errs.ErrorTypeAuth, resp.StatusCode, "session rejected by portal")
	case resp.StatusCode == http.StatusNotFound:
		return errs.New(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found: %s", resp.Request.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests:
		return errs.New(errs.ErrorTypeRateLimit, resp.StatusCode, "rate limit exceeded")
	case resp.StatusCode >= 500:
		return errs.New(errs.ErrorTypeServerError, resp.StatusCode, "server error")
	case resp.StatusCode >= 300:
		return errs.New(errs.ErrorTypeUnknown, resp.StatusCode, "unexpected status code: %d", resp.StatusCode)
	default:
		return nil
	}
}

// readBody drains and closes resp.Body
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}
	return body, nil
}

// decodeJSON reads resp.Body into target
func (c *Client) decodeJSON(resp *http.Response, target interface{}) error {
	body, err := c.readBody(resp)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          resp.Request.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview(body),
		})
		return errs.Wrap(errs.ErrorTypeParsing, err, "failed to parse JSON from %s", resp.Request.URL.Path)
	}
	return nil
}

// Download opens the export archive at rawURL. The caller closes the body.
// The archive location is pre-signed, so no session cookie is sent.
func (c *Client) Download(ctx context.Context, rawURL string) (*http.Response, error) {
	target, err := c.ResolveURL(rawURL)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeResolution, err, "invalid download URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}

	resp, err := c.doRequest(req, true)
	if err != nil {
		return nil, err
	}
	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > maxBodyPreview {
		return s[:maxBodyPreview] + "..."
	}
	return s
}
