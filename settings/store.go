package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/ardnew/softhid/pkg"
	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"
)

const (
	settingsFile = "/settings.bin"
	tempSuffix   = ".tmp"
)

// Store persists Settings on a littlefs filesystem over any
// tinyfs.BlockDevice: on-chip flash in a deployment, a memory device
// in hosted tests.
type Store struct {
	fs      *littlefs.LFS
	dev     tinyfs.BlockDevice
	mounted bool
}

// NewStore mounts the filesystem on dev, formatting first when the
// mount fails, and sweeps temporary files left by interrupted saves.
func NewStore(dev tinyfs.BlockDevice) (*Store, error) {
	if dev == nil {
		return nil, fmt.Errorf("block device: %w", pkg.ErrInvalidParameter)
	}

	fs := littlefs.New(dev)
	fs.Configure(&littlefs.Config{
		CacheSize:     512,
		LookaheadSize: 128,
	})

	if err := fs.Mount(); err != nil {
		pkg.LogWarn(pkg.ComponentSettings, "mount failed, formatting", "error", err)
		if err := fs.Format(); err != nil {
			return nil, fmt.Errorf("format: %w", err)
		}
		if err := fs.Mount(); err != nil {
			return nil, fmt.Errorf("mount after format: %w", err)
		}
	}

	s := &Store{fs: fs, dev: dev, mounted: true}
	s.sweepTemp()
	return s, nil
}

// Close unmounts the filesystem.
func (s *Store) Close() error {
	if !s.mounted {
		return nil
	}
	s.mounted = false
	return s.fs.Unmount()
}

// Load reads the stored settings. A missing file yields the defaults;
// a short, corrupt, or version-mismatched file is wiped and yields
// the defaults too.
func (s *Store) Load() (Settings, error) {
	f, err := s.fs.Open(settingsFile)
	if err != nil {
		if isNotExist(err) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("open settings: %w", err)
	}

	var buf [SettingsSize]byte
	n, _ := f.Read(buf[:])
	f.Close()
	if n < SettingsSize {
		pkg.LogWarn(pkg.ComponentSettings, "short settings file, using defaults", "bytes", n)
		return s.wipe()
	}

	var stg Settings
	if err := stg.UnmarshalBinary(buf[:n]); err != nil {
		pkg.LogWarn(pkg.ComponentSettings, "corrupt settings, using defaults", "error", err)
		return s.wipe()
	}
	if stg.Version != FormatVersion {
		pkg.LogWarn(pkg.ComponentSettings, "settings version mismatch, using defaults",
			"stored", stg.Version,
			"format", FormatVersion)
		return s.wipe()
	}
	return stg, nil
}

// Save writes stg through a temp file, sync, and rename, stamping the
// current format version.
func (s *Store) Save(stg Settings) error {
	stg.Version = FormatVersion
	data, err := stg.MarshalBinary()
	if err != nil {
		return err
	}

	temp := settingsFile + tempSuffix
	s.fs.Remove(temp)

	f, err := s.fs.OpenFile(temp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("create %s: %w", temp, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(temp)
		return fmt.Errorf("write %s: %w", temp, err)
	}
	// Sync before the rename so the data is on flash when the new
	// name becomes visible.
	if syncer, ok := f.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			f.Close()
			s.fs.Remove(temp)
			return fmt.Errorf("sync %s: %w", temp, err)
		}
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(temp)
		return fmt.Errorf("close %s: %w", temp, err)
	}

	// littlefs rename does not replace an existing target.
	s.fs.Remove(settingsFile)
	if err := s.fs.Rename(temp, settingsFile); err != nil {
		s.fs.Remove(temp)
		return fmt.Errorf("rename %s: %w", temp, err)
	}

	pkg.LogInfo(pkg.ComponentSettings, "settings saved")
	return nil
}

// Reset removes the stored settings so the next Load yields defaults.
func (s *Store) Reset() error {
	if err := s.fs.Remove(settingsFile); err != nil && !isNotExist(err) {
		return fmt.Errorf("remove settings: %w", err)
	}
	pkg.LogInfo(pkg.ComponentSettings, "settings reset")
	return nil
}

// wipe removes the settings file and returns the defaults.
func (s *Store) wipe() (Settings, error) {
	s.fs.Remove(settingsFile)
	return Default(), nil
}

// sweepTemp removes temp files abandoned by saves that lost power
// before their rename.
func (s *Store) sweepTemp() {
	dir, err := s.fs.Open("/")
	if err != nil {
		return
	}
	defer dir.Close()

	entries, err := dir.Readdir(-1)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), tempSuffix) {
			s.fs.Remove("/" + entry.Name())
			pkg.LogWarn(pkg.ComponentSettings, "removed stale temp file", "name", entry.Name())
		}
	}
}

// isNotExist matches both the os sentinel and the raw littlefs
// message, which does not always map onto it.
func isNotExist(err error) bool {
	if err == nil {
		return false
	}
	if os.IsNotExist(err) {
		return true
	}
	return strings.Contains(err.Error(), "No directory entry")
}
