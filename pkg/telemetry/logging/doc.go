// Package logging provides structured logging with api key redaction.
//
// # Overview
//
// The logging package builds loggers on Go's standard log/slog package
// and provides:
//   - Structured logging with JSON and text formats
//   - Automatic masking of api key values in log attributes
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:      "info",
//	    Format:     "json",
//	    RedactKeys: true,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	logger.Info("call recorded",
//	    "api_key", "sk-abc123xyz789",  // Automatically masked
//	    "operation", "Get_Quote",
//	)
//
// # Key Redaction
//
// When RedactKeys is enabled, attribute values under credential-bearing
// keys (api_key, token, secret, and similar) are masked before they
// reach the output handler: a short prefix and suffix stay visible and
// the middle is replaced, short values are masked entirely. Values that
// are already in masked shape pass through unchanged, so pre-masked
// attributes are not masked twice.
package logging
