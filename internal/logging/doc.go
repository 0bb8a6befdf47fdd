// Package logging provides structured logging for chalbox.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation. The interactive TUI owns the terminal, so logs go to
// a file under the chalbox state directory rather than stderr.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	opLogger := logger.WithChallenge(12).WithOperation("request")
//	opLogger.Error("container call failed", "error", err.Error())
//
// Output:
//
//	{"time":"...","level":"ERROR","msg":"container call failed","challenge_id":12,"op":"request","error":"..."}
//
// # Log Rotation
//
// Rotated files are named chalbox.log.1, chalbox.log.2, etc., where .1 is
// the most recent backup.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output.
package logging
