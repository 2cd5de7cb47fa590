// Package regbus defines the register-file contract between the input
// bridge and the transports that carry it to a host.
//
// The bridge exposes a small register map in the HID-over-I2C shape: a
// host discovers everything else by reading the HID Descriptor
// register, then exchanges reports through the input, output, command,
// and data registers. Handler is the device side of that contract; Bus
// is the host side, with transport-specific dialing and an
// out-of-band interrupt signal that tells the host when input reports
// are waiting.
package regbus

import "context"

// Well-known registers of the bridge's register file. Register 0x0000
// is reserved and never valid.
const (
	RegHIDDescriptor    uint16 = 0x0001
	RegReportDescriptor uint16 = 0x0002
	RegInput            uint16 = 0x0003
	RegOutput           uint16 = 0x0004
	RegCommand          uint16 = 0x0005
	RegData             uint16 = 0x0006
)

// Handler is the device side of the register file. Implementations
// must be safe for calls concurrent with the device's own processing.
type Handler interface {
	// ReadRegister fills buf with the register's current contents and
	// returns the number of bytes the register holds. A return value
	// larger than len(buf) means the contents were truncated; at most
	// len(buf) bytes are written either way.
	ReadRegister(reg uint16, buf []byte) (int, error)

	// WriteRegister delivers a host write to the register.
	WriteRegister(reg uint16, data []byte) error
}

// Bus is the host side of the register file.
type Bus interface {
	// ReadRegister reads a register into buf and returns the number of
	// bytes received.
	ReadRegister(ctx context.Context, reg uint16, buf []byte) (int, error)

	// WriteRegister writes data to a register.
	WriteRegister(ctx context.Context, reg uint16, data []byte) error

	// WaitInterrupt blocks until the device signals that input reports
	// are waiting, or ctx ends. A wakeup may be stale: callers must
	// re-read the input register and treat an empty result as a cue to
	// wait again.
	WaitInterrupt(ctx context.Context) error

	// Close releases the transport. Blocked calls return ErrBusClosed.
	Close() error
}
