//go:build !profile

package prof

import "errors"

// Profiling errors. The no-op build never returns them.
var (
	// ErrProfileActive indicates CPU sampling is already running.
	ErrProfileActive = errors.New("profile already active")

	// ErrUnknownProfile indicates a profile name pprof does not know.
	ErrUnknownProfile = errors.New("unknown profile")
)

// StartCPU is a no-op without the "profile" tag.
func StartCPU(_ string) error { return nil }

// StopCPU is a no-op without the "profile" tag.
func StopCPU() {}

// Write is a no-op without the "profile" tag.
func Write(_, _ string) error { return nil }
