package educabiz

import (
	"regexp"
	"strings"

	"educabiz-exporter/pkg/logger"
)

// Session is the credential presented to the portal. It is a value: every
// call receives it explicitly and nothing mutates it after creation.
type Session struct {
	token         string
	authenticated bool
}

// AnonymousSession wraps the cookie issued before login
func AnonymousSession(token string) Session {
	return Session{token: token}
}

// AuthenticatedSession wraps the cookie issued after a successful login
func AuthenticatedSession(token string) Session {
	return Session{token: token, authenticated: true}
}

// Token returns the raw cookie text
func (s Session) Token() string { return s.token }

// IsAuthenticated reports whether the session may be used for gallery and export calls
func (s Session) IsAuthenticated() bool { return s.authenticated && s.token != "" }

// IsZero reports whether the session is unset
func (s Session) IsZero() bool { return s.token == "" }

// String masks the token
func (s Session) String() string {
	state := "anonymous"
	if s.authenticated {
		state = "authenticated"
	}
	return state + " session " + logger.Mask(s.token)
}

// bindCSRF builds the login cookie header that ties the anonymous session to
// the CSRF token it was issued with.
func (s Session) bindCSRF(csrfToken string) string {
	return SessionCookieName + "='" + s.token + "-___AT=" + csrfToken + "'"
}

// SessionExtractor pulls session material out of portal responses. The portal
// exposes it only through textual conventions, so matching lives behind this
// interface.
type SessionExtractor interface {
	// SessionCookie returns the session cookie text from Set-Cookie values
	SessionCookie(setCookies []string) (string, bool)
	// CSRFToken returns the login form's CSRF token from an HTML body
	CSRFToken(body []byte) (string, bool)
	// Forbidden reports whether the portal flagged the login as rejected
	Forbidden(setCookies []string) bool
}

// PatternExtractor implements SessionExtractor with regular expressions
type PatternExtractor struct {
	CookieName string

	sessionValue *regexp.Regexp
	csrfToken    *regexp.Regexp
	forbidden    *regexp.Regexp
}

// NewPatternExtractor returns an extractor for the portal's current markup
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{
		CookieName:   SessionCookieName,
		sessionValue: regexp.MustCompile(`(.*); Version=`),
		csrfToken:    regexp.MustCompile(`"authenticityToken" value="(.*)"`),
		forbidden:    regexp.MustCompile(`security\.forbidden\.unknown`),
	}
}

// SessionCookie returns the text of the first session cookie up to its
// "; Version=" attribute.
func (e *PatternExtractor) SessionCookie(setCookies []string) (string, bool) {
	for _, cookie := range setCookies {
		if !strings.Contains(cookie, e.CookieName) {
			continue
		}
		m := e.sessionValue.FindStringSubmatch(cookie)
		if m == nil || m[1] == "" {
			return "", false
		}
		return m[1], true
	}
	return "", false
}

func (e *PatternExtractor) CSRFToken(body []byte) (string, bool) {
	m := e.csrfToken.FindSubmatch(body)
	if m == nil || len(m[1]) == 0 {
		return "", false
	}
	return string(m[1]), true
}

func (e *PatternExtractor) Forbidden(setCookies []string) bool {
	for _, cookie := range setCookies {
		if e.forbidden.MatchString(cookie) {
			return true
		}
	}
	return false
}
