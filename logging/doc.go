// Package logging provides a minimal logging interface and adapters for agentdesk.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the engine, decision requester and tool invoker use for observability.
// This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - StructuredLogger with per-conversation context and turn/decision/tool helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	eng := engine.New(resolver, requester, func(o *engine.Options) { o.Logger = logger })
package logging
