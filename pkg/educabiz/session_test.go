package educabiz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionStates(t *testing.T) {
	var zero Session
	assert.True(t, zero.IsZero())
	assert.False(t, zero.IsAuthenticated())

	anon := AnonymousSession("PLAY_SESSION=abc")
	assert.False(t, anon.IsAuthenticated())
	assert.Equal(t, "PLAY_SESSION='PLAY_SESSION=abc-___AT=tok'", anon.bindCSRF("tok"))

	auth := AuthenticatedSession("PLAY_SESSION=0123456789")
	assert.True(t, auth.IsAuthenticated())
	assert.NotContains(t, auth.String(), "0123456789")
	assert.Contains(t, auth.String(), "authenticated")
}

func TestPatternExtractorSessionCookie(t *testing.T) {
	e := NewPatternExtractor()

	tests := []struct {
		name    string
		cookies []string
		want    string
		ok      bool
	}{
		{
			name:    "picks the session cookie",
			cookies: []string{"PLAY_FLASH=; Version=1; Path=/", "PLAY_SESSION=abc-123; Version=1; Path=/; HTTPOnly"},
			want:    "PLAY_SESSION=abc-123",
			ok:      true,
		},
		{
			name:    "missing version attribute",
			cookies: []string{"PLAY_SESSION=abc; Path=/"},
			ok:      false,
		},
		{
			name:    "no session cookie",
			cookies: []string{"PLAY_FLASH=; Version=1"},
			ok:      false,
		},
		{
			name: "no cookies",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.SessionCookie(tt.cookies)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPatternExtractorCSRFToken(t *testing.T) {
	e := NewPatternExtractor()

	token, ok := e.CSRFToken([]byte("<form>\n<input type=\"hidden\" name=\"authenticityToken\" value=\"f00d\">\n</form>"))
	assert.True(t, ok)
	assert.Equal(t, "f00d", token)

	_, ok = e.CSRFToken([]byte("<form></form>"))
	assert.False(t, ok)
}

func TestPatternExtractorForbidden(t *testing.T) {
	e := NewPatternExtractor()
	assert.True(t, e.Forbidden([]string{"PLAY_SESSION=x; Version=1", "PLAY_FLASH=\"error:security.forbidden.unknown\"; Version=1"}))
	assert.False(t, e.Forbidden([]string{"PLAY_SESSION=x; Version=1"}))
	assert.False(t, e.Forbidden(nil))
}
