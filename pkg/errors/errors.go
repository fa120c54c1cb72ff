package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the kinds of failure an export run can hit
type ErrorType string

const (
	ErrorTypeAuth         ErrorType = "auth"
	ErrorTypeGalleryFetch ErrorType = "gallery_fetch"
	ErrorTypeProtocol     ErrorType = "protocol"
	ErrorTypeResolution   ErrorType = "resolution"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeParsing      ErrorType = "parsing"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeServerError  ErrorType = "server_error"
	ErrorTypeUnknown      ErrorType = "unknown"
)

// Error represents a portal or protocol error with type information.
// Code carries the upstream HTTP status when one was observed, 0 otherwise.
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap exposes the underlying cause, if any
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error
func New(t ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{Type: t, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error around an existing cause
func Wrap(t ErrorType, err error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...) + ": " + err.Error(), Err: err}
}

// Authentication reports rejected credentials
func Authentication(message string) *Error {
	return &Error{Type: ErrorTypeAuth, Message: message}
}

// GalleryFetch reports a non-success status on a gallery page request
func GalleryFetch(page, status int) *Error {
	return &Error{
		Type:    ErrorTypeGalleryFetch,
		Message: fmt.Sprintf("gallery page %d returned status %d", page, status),
		Code:    status,
	}
}

// Protocol reports that an expected pattern is missing from a portal response
func Protocol(what string) *Error {
	return &Error{Type: ErrorTypeProtocol, Message: what}
}

// Resolution reports a finished job without a usable result location
func Resolution(message string) *Error {
	return &Error{Type: ErrorTypeResolution, Message: message}
}

// Timeout reports that polling gave up before the job finished
func Timeout(message string, cause error) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: message, Err: cause}
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown for untyped errors
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err (or anything it wraps) is an *Error of type t
func IsType(err error, t ErrorType) bool {
	var e *Error
	return stderrors.As(err, &e) && e.Type == t
}

// IsRetryable checks if an error type describes a transient transport condition.
// Runs never retry across stages; this only classifies failures for logs.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a transient error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case 429:
		return true
	case 401, 403, 404:
		return false
	default:
		return statusCode >= 500
	}
}
