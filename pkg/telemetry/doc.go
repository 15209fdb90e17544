// Package telemetry groups the observability building blocks used
// across Tally.
//
// # Components
//
//   - logging: structured slog construction with api key redaction
//
// Metrics collectors live next to the code they instrument; see the
// accounting package for the Prometheus metrics.
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:      "info",
//	    Format:     string(logging.FormatText),
//	    RedactKeys: true,
//	})
//	if err != nil {
//	    return err
//	}
//	logger.Info("call recorded", "api_key", key)
package telemetry
