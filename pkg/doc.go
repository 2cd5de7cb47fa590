// Package pkg provides shared utilities for the softhid input bridge.
//
// This package contains common functionality used across the protocol
// engines and the register-file front end, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for bridge and protocol errors
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with bridge-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentPS2, "link enabled", "port", "keyboard")
//
// Protocol engines never log from edge (interrupt) context; only the
// poll-side paths emit log records.
//
// # Errors
//
// Common bridge errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrBufferFull) {
//	    // Retry after draining the outbound queue
//	}
package pkg
