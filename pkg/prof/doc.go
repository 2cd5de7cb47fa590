// Package prof wraps [runtime/pprof] behind the "profile" build tag.
//
// Built with the tag, StartCPU and StopCPU bracket CPU sampling,
// Write snapshots any named runtime profile, and an HTTP server on
// localhost:6060 exposes /debug/pprof/. Built without it, every
// function is a no-op, so profiling hooks stay wired into demos and
// tools at zero cost:
//
//	go run -tags profile ./examples/pipe-bus/bridge -cpuprofile cpu.prof
//
// Snapshot profiles take the names [runtime/pprof.Lookup] knows:
// heap, allocs, goroutine, threadcreate, block, and mutex. CPU
// sampling is not a snapshot; Write rejects "cpu" and points at
// StartCPU instead.
package prof
