// Package logger provides the structured logging interface used by every
// component of the downloader.
//
// It wraps zerolog. Loggers are constructed explicitly and passed to the
// components that need them; there is no package-level instance.
//
//	log, err := logger.New(&cfg.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//	log.WithField("username", "alice").Info("Profile resolved")
//	log.WithError(err).WithField("media_id", id).Warn("Skipping item")
//
// Console output is colorized; when LoggingConfig.File is set every entry is
// also appended to that file as JSON.
//
// Tests use NewNopLogger to silence output or NewTestLogger to capture
// entries and assert on them.
package logger
