//go:build profile

package prof

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStartCPU(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cpu.prof")
	if err := StartCPU(path); err != nil {
		t.Fatalf("StartCPU() error = %v", err)
	}

	// A second run must fail fast while the first is active.
	if err := StartCPU(filepath.Join(t.TempDir(), "cpu2.prof")); !errors.Is(err, ErrProfileActive) {
		t.Errorf("concurrent StartCPU() error = %v, want %v", err, ErrProfileActive)
	}

	StopCPU()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat(%s) error = %v", path, err)
	}
	if info.Size() == 0 {
		t.Error("profile file is empty")
	}

	// Stopping again is harmless, and a new run may start.
	StopCPU()
	if err := StartCPU(path); err != nil {
		t.Errorf("StartCPU() after stop error = %v", err)
	}
	StopCPU()
}

func TestStartCPU_InvalidPath(t *testing.T) {
	if err := StartCPU("/nonexistent/directory/cpu.prof"); err == nil {
		StopCPU()
		t.Error("StartCPU() on bad path: error = nil, want error")
	}
}

func TestWrite(t *testing.T) {
	for _, name := range []string{"heap", "goroutine", "allocs"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name+".prof")
			if err := Write(name, path); err != nil {
				t.Fatalf("Write(%q) error = %v", name, err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("Stat(%s) error = %v", path, err)
			}
			if info.Size() == 0 {
				t.Errorf("Write(%q) produced an empty file", name)
			}
		})
	}
}

func TestWrite_Rejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.prof")
	if err := Write("cpu", path); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Write(cpu) error = %v, want %v", err, ErrUnknownProfile)
	}
	if err := Write("nonesuch", path); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Write(nonesuch) error = %v, want %v", err, ErrUnknownProfile)
	}
}
