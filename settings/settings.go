// Package settings persists bridge configuration on a littlefs
// filesystem, the way small-flash firmware keeps calibration across
// power cycles.
//
// Settings is a fixed-layout binary record of the bridge's tunables.
// Zero values defer to the engines' compiled-in defaults, so a fresh
// or wiped filesystem behaves exactly like an unconfigured build.
// Store wraps the filesystem with atomic saves and a wipe-and-default
// recovery path for corrupt or out-of-version files.
package settings

import (
	"encoding/binary"

	"github.com/ardnew/softhid/pkg"
)

// FormatVersion is the settings format version. A stored record with
// any other version is wiped and replaced by defaults.
const FormatVersion uint16 = 1

// SettingsSize is the encoded size of Settings in bytes.
const SettingsSize = 20

// Input port enable bits for the Ports field.
const (
	PortKeyboard uint8 = 1 << iota
	PortMouse
	PortJoy1
	PortJoy2
	PortPanel

	PortAll = PortKeyboard | PortMouse | PortJoy1 | PortJoy2 | PortPanel
)

// Settings is the persisted bridge configuration. Identity and timing
// fields left zero defer to the engines' defaults; only the values a
// user has actually changed are meaningful.
type Settings struct {
	Version uint16 // Format version, stamped by Store.Save
	Ports   uint8  // Enabled input ports

	VendorID  uint16 // USB-style vendor ID reported to the host
	ProductID uint16 // Product ID reported to the host
	VersionID uint16 // Firmware revision reported to the host

	HoldMicros        uint16 // PS/2 request-to-send clock hold
	AckTimeoutMicros  uint16 // PS/2 per-step transmit budget
	ReadTimeoutMicros uint16 // PS/2 inter-edge receive budget

	ScanIntervalMicros uint32 // Joystick and panel scan interval
}

// Default returns the factory settings: every port enabled and every
// tunable zero, deferring to the engines' own defaults.
func Default() Settings {
	return Settings{Version: FormatVersion, Ports: PortAll}
}

// PortEnabled reports whether the given port bit is set.
func (s *Settings) PortEnabled(port uint8) bool {
	return s.Ports&port != 0
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *Settings) MarshalBinary() ([]byte, error) {
	buf := make([]byte, SettingsSize)
	binary.LittleEndian.PutUint16(buf[0:], s.Version)
	buf[2] = s.Ports
	// buf[3] stays zero: reserved padding.
	binary.LittleEndian.PutUint16(buf[4:], s.VendorID)
	binary.LittleEndian.PutUint16(buf[6:], s.ProductID)
	binary.LittleEndian.PutUint16(buf[8:], s.VersionID)
	binary.LittleEndian.PutUint16(buf[10:], s.HoldMicros)
	binary.LittleEndian.PutUint16(buf[12:], s.AckTimeoutMicros)
	binary.LittleEndian.PutUint16(buf[14:], s.ReadTimeoutMicros)
	binary.LittleEndian.PutUint32(buf[16:], s.ScanIntervalMicros)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *Settings) UnmarshalBinary(data []byte) error {
	if len(data) < SettingsSize {
		return pkg.ErrCorruptSettings
	}
	s.Version = binary.LittleEndian.Uint16(data[0:])
	s.Ports = data[2]
	s.VendorID = binary.LittleEndian.Uint16(data[4:])
	s.ProductID = binary.LittleEndian.Uint16(data[6:])
	s.VersionID = binary.LittleEndian.Uint16(data[8:])
	s.HoldMicros = binary.LittleEndian.Uint16(data[10:])
	s.AckTimeoutMicros = binary.LittleEndian.Uint16(data[12:])
	s.ReadTimeoutMicros = binary.LittleEndian.Uint16(data[14:])
	s.ScanIntervalMicros = binary.LittleEndian.Uint32(data[16:])
	return nil
}
