// Package logging provides a minimal logging interface and adapters for agentloop.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the agent loop, tool catalog and CLI use for observability. This package includes:
//
//   - Logger interface for dependency injection
//   - StructuredLogger built on slog with json, text and pretty (tint) output
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: logging.FormatPretty})
//	a, err := agent.New(m, catalog, func(o *agent.Options) { o.Logger = logger })
//
// Event names are dotted (agent.run.start, tool.call.failed) so they can be
// filtered easily.
package logging
