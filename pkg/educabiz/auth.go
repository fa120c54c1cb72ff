package educabiz

import (
	"context"
	"net/http"

	errs "educabiz-exporter/pkg/errors"
	"educabiz-exporter/pkg/logger"
)

// Authenticator turns credentials into an authenticated Session
type Authenticator struct {
	client    *Client
	extractor SessionExtractor
	logger    logger.Logger
}

// NewAuthenticator creates an Authenticator. A nil extractor selects the
// pattern based default.
func NewAuthenticator(client *Client, extractor SessionExtractor) *Authenticator {
	if extractor == nil {
		extractor = NewPatternExtractor()
	}
	return &Authenticator{
		client:    client,
		extractor: extractor,
		logger:    client.logger.WithField("component", "authenticator"),
	}
}

// Bootstrap fetches the login page and returns the anonymous session together
// with the CSRF token embedded in the page.
func (a *Authenticator) Bootstrap(ctx context.Context) (Session, string, error) {
	req, err := a.client.newRequest(ctx, http.MethodGet, RootPath, "", "")
	if err != nil {
		return Session{}, "", err
	}

	resp, err := a.client.doRequest(req, true)
	if err != nil {
		return Session{}, "", err
	}
	if err := a.client.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return Session{}, "", err
	}

	setCookies := resp.Header.Values("Set-Cookie")
	body, err := a.client.readBody(resp)
	if err != nil {
		return Session{}, "", err
	}

	sessionID, ok := a.extractor.SessionCookie(setCookies)
	if !ok {
		return Session{}, "", errs.Protocol("anonymous session cookie not found on login page")
	}

	csrf, ok := a.extractor.CSRFToken(body)
	if !ok {
		return Session{}, "", errs.Protocol("authenticityToken not found on login page")
	}

	return AnonymousSession(sessionID), csrf, nil
}

// Authenticate logs in and returns the authenticated session. Rejected
// credentials yield an auth error and are never retried.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (Session, error) {
	anonymous, csrf, err := a.Bootstrap(ctx)
	if err != nil {
		return Session{}, err
	}

	a.logger.DebugWithFields("anonymous session established", map[string]interface{}{
		"session":    anonymous.Token(),
		"csrf_token": csrf,
	})

	req, err := a.client.newRequest(ctx, http.MethodPost, AuthenticatePath,
		LoginForm(csrf, username, password), anonymous.bindCSRF(csrf))
	if err != nil {
		return Session{}, err
	}

	resp, err := a.client.doRequest(req, false)
	if err != nil {
		return Session{}, err
	}
	setCookies := resp.Header.Values("Set-Cookie")
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Session{}, errs.New(errs.ErrorTypeServerError, resp.StatusCode, "login failed")
	}

	if a.extractor.Forbidden(setCookies) {
		a.logger.WarnWithFields("login rejected", map[string]interface{}{"username": username})
		return Session{}, errs.Authentication("wrong credentials, check EDUCABIZ_USERNAME and EDUCABIZ_PASSWORD")
	}

	token, ok := a.extractor.SessionCookie(setCookies)
	if !ok {
		return Session{}, errs.Protocol("authenticated session cookie not found in login response")
	}
	if token == anonymous.Token() {
		return Session{}, errs.Protocol("login response did not issue a new session")
	}

	a.logger.InfoWithFields("authenticated", map[string]interface{}{"username": username})
	return AuthenticatedSession(token), nil
}
