// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Transport code logs through a named child logger per component
// ("process", "session", "rpc"). Nothing is ever logged between fork and exec
// of a child process; spawn logging happens in the parent before and after.
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	logger.Named("session").Info("editor started", zap.Int("pid", pid))
package logging
