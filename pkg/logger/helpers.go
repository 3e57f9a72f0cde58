package logger

import (
	"time"
)

// LogRequest logs one completed HTTP request at a level matching its status
func LogRequest(l Logger, method, url string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"url":         url,
		"status_code": statusCode,
		"duration_ms": duration.Milliseconds(),
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

// LogDownload logs the outcome of a single media download
func LogDownload(l Logger, url, category, status string, size int64, err error) {
	entry := l.WithFields(map[string]interface{}{
		"url":      url,
		"category": category,
		"status":   status,
		"bytes":    size,
	})

	if err != nil {
		entry.WithError(err).Error("Download failed")
		return
	}
	if status == "skipped_exists" {
		entry.Debug("Download skipped, file exists")
		return
	}
	entry.Info("Download completed")
}

// LogRateLimit logs a pacing delay imposed before the next request
func LogRateLimit(l Logger, endpoint string, wait time.Duration) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"action":   "rate_limited",
	}).Debug("Rate limit reached, waiting")
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
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) Close() error                                              { return nil }
