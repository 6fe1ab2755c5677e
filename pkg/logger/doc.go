// Package logger provides the structured logging interface used across the
// glossary crawler.
//
// It wraps zerolog. Console output is colourised and written to stderr; when
// a log file is configured the same events are also appended to it as JSON
// lines.
//
// Basic usage:
//
//	err := logger.Initialize(&cfg.Logging)
//
//	log := logger.GetLogger().WithField("stage", "categories")
//	log.InfoWithFields("batch fetched", map[string]interface{}{
//	    "batch": 3,
//	    "pages": 50,
//	})
//
// Components take a Logger in their constructors. Tests use NewTestLogger to
// capture and assert on messages, or NewNopLogger to discard them.
package logger
