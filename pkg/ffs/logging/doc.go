// Package logging provides the logging facade used by the FFS prover,
// verifier and session orchestration.
//
// The Logger interface wraps the part of log/slog the protocol code needs.
// It is small so applications can plug in their own implementation for tests,
// redaction policies or an existing logging system.
//
//	logger := logging.New(nil) // slog.Default()
//
//	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
//	logger = logging.New(slog.New(handler))
//
// # Redaction
//
// Secrets, the per-round randomness r and the responses are never logged.
// Protocol code uses Redacted to show where such a value was deliberately
// left out:
//
//	logger.Debug(ctx, "response computed", logging.Redacted("y"), "round", 3)
//	// y="[redacted]" round=3
package logging
