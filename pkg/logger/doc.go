// Package logger provides the structured logging interface used across the exporter.
//
// It wraps zerolog. Console output goes to stderr so that stdout stays free for
// progress output; an optional file receives the same events as JSON lines.
// Fields named like secrets (password, cookie, session token) are masked
// before they are written.
//
// Basic Usage:
//
//	err := logger.Initialize(&config.LoggingConfig{Level: "info"})
//
//	log := logger.GetLogger().WithField("run_id", runID)
//	log.InfoWithFields("Export finished", map[string]interface{}{
//	    "pictures": 42,
//	    "file":     "export.zip",
//	})
package logger
