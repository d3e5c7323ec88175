// Package log provides the logging abstraction used by multiflow components.
//
// Devices, sessions and the deferred commit worker log through the Logger
// interface so that embedders can plug in their own backend. A zerolog
// adapter and a no-op logger are provided.
//
// # Usage
//
//	logger := log.NewZerologAdapter()
//	logger.Info("session opened", log.Minor(3), log.Priority("high"))
//
// Tests and library callers that do not care about output use:
//
//	logger := log.NewNoopLogger()
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
