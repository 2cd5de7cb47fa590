//go:build profile

package prof

import (
	"errors"
	"net/http"
	"os"
	"runtime/pprof"
	"sync"

	_ "net/http/pprof" // Register handlers at /debug/pprof/
)

func init() {
	go func() {
		println(http.ListenAndServe("localhost:6060", nil))
	}()
}

// Profiling errors.
var (
	// ErrProfileActive indicates CPU sampling is already running.
	ErrProfileActive = errors.New("profile already active")

	// ErrUnknownProfile indicates a profile name pprof does not know,
	// or "cpu", which needs StartCPU rather than Write.
	ErrUnknownProfile = errors.New("unknown profile")
)

var cpu struct {
	sync.Mutex
	file *os.File
}

// StartCPU begins sampling CPU usage into the file at path. Only one
// sampling run may be active at a time.
func StartCPU(path string) error {
	cpu.Lock()
	defer cpu.Unlock()

	if cpu.file != nil {
		return ErrProfileActive
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return err
	}
	cpu.file = f
	return nil
}

// StopCPU ends CPU sampling and closes the profile file. It is safe
// to call when sampling is not active.
func StopCPU() {
	cpu.Lock()
	defer cpu.Unlock()

	if cpu.file == nil {
		return
	}
	pprof.StopCPUProfile()
	cpu.file.Close()
	cpu.file = nil
}

// Write snapshots the named runtime profile to the file at path.
func Write(name, path string) error {
	if name == "cpu" {
		return ErrUnknownProfile
	}
	p := pprof.Lookup(name)
	if p == nil {
		return ErrUnknownProfile
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteTo(f, 0)
}
