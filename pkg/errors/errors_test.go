package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := GalleryFetch(3, 502)
	assert.Equal(t, "gallery_fetch error (code 502): gallery page 3 returned status 502", err.Error())
	assert.Equal(t, 502, err.Code)

	err = Protocol("authenticityToken not found in page body")
	assert.Equal(t, "protocol error: authenticityToken not found in page body", err.Error())
}

func TestTypeOfThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("scan failed: %w", GalleryFetch(1, 500))

	assert.Equal(t, ErrorTypeGalleryFetch, TypeOf(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeGalleryFetch))
	assert.False(t, IsType(wrapped, ErrorTypeAuth))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(stderrors.New("plain")))
}

func TestTimeoutUnwrapsCause(t *testing.T) {
	err := Timeout("export job did not finish", context.DeadlineExceeded)

	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, ErrorTypeTimeout, TypeOf(err))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		want      bool
	}{
		{ErrorTypeNetwork, true},
		{ErrorTypeServerError, true},
		{ErrorTypeRateLimit, true},
		{ErrorTypeAuth, false},
		{ErrorTypeGalleryFetch, false},
		{ErrorTypeProtocol, false},
		{ErrorTypeResolution, false},
		{ErrorTypeTimeout, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.errorType), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.errorType))
		})
	}
}

func TestIsRetryableStatusCode(t *testing.T) {
	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(429))
	assert.True(t, IsRetryableStatusCode(503))
	assert.False(t, IsRetryableStatusCode(403))
	assert.False(t, IsRetryableStatusCode(200))
}
