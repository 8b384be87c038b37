// Package logger provides structured logging for minidb.
//
// Two backends sit behind the same Logger interface:
//
//   - slog (default): log/slog JSON or text handler
//   - zap: go.uber.org/zap JSON or console encoder
//
// Both share one process-wide level that can be changed at runtime with
// SetLevel, and both redact attributes whose key names look like secrets
// (see redact.go). Context helpers attach a logger and a connection id to a
// context.Context.
//
// Logs are written to stderr by default; stdout is reserved for the
// server's readiness line.
package logger
