package logger

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

var secretKeys = map[string]bool{
	"password":           true,
	"session":            true,
	"session_token":      true,
	"cookie":             true,
	"authenticity_token": true,
	"csrf_token":         true,
}

// IsSecretKey reports whether values logged under key must be masked
func IsSecretKey(key string) bool {
	return secretKeys[strings.ToLower(key)]
}

// Mask keeps at most the first four characters of a secret
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// LogRequest logs a completed HTTP exchange with the portal
func LogRequest(l Logger, method, url string, statusCode int, durationMs float64) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": durationMs,
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", fields)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", fields)
	default:
		l.DebugWithFields("HTTP request completed", fields)
	}
}

// LogStage logs the start of an export stage
func LogStage(l Logger, stage string, fields map[string]interface{}) {
	l.WithField("stage", stage).InfoWithFields("Stage started", fields)
}

// LogPageScanned logs gallery scan progress
func LogPageScanned(l Logger, page, onPage, kept int) {
	l.DebugWithFields("Gallery page scanned", map[string]interface{}{
		"page":    page,
		"on_page": onPage,
		"kept":    kept,
	})
}

// LogJobProgress logs export job progress
func LogJobProgress(l Logger, jobID string, processed, total int) {
	l.DebugWithFields("Export job progress", map[string]interface{}{
		"job_id":    jobID,
		"processed": processed,
		"total":     total,
	})
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
