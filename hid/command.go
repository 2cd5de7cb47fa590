package hid

import "github.com/ardnew/softhid/pkg"

// CommandSize is the encoded size of a Command in bytes.
const CommandSize = 2

// Opcode selects the operation of a Command.
type Opcode uint8

// Command opcodes. GetIdle through SetPower are legacy operations a
// device may accept as no-ops.
const (
	OpcodeReset       Opcode = 1 // Reset the device
	OpcodeGetReport   Opcode = 2 // Retrieve an Input or Feature report
	OpcodeSetReport   Opcode = 3 // Set an Output or Feature report
	OpcodeGetIdle     Opcode = 4 // Read a collection's idle rate
	OpcodeSetIdle     Opcode = 5 // Set a collection's idle rate
	OpcodeGetProtocol Opcode = 6 // Read boot/report protocol mode
	OpcodeSetProtocol Opcode = 7 // Set boot/report protocol mode
	OpcodeSetPower    Opcode = 8 // Indicate preferred power setting
)

// String returns a human-readable opcode name.
func (o Opcode) String() string {
	switch o {
	case OpcodeReset:
		return "reset"
	case OpcodeGetReport:
		return "get-report"
	case OpcodeSetReport:
		return "set-report"
	case OpcodeGetIdle:
		return "get-idle"
	case OpcodeSetIdle:
		return "set-idle"
	case OpcodeGetProtocol:
		return "get-protocol"
	case OpcodeSetProtocol:
		return "set-protocol"
	case OpcodeSetPower:
		return "set-power"
	default:
		return "unknown"
	}
}

// ReportType classifies the report a Command addresses.
type ReportType uint8

// Report types.
const (
	ReportTypeReserved ReportType = 0
	ReportTypeInput    ReportType = 1
	ReportTypeOutput   ReportType = 2
	ReportTypeFeature  ReportType = 3
)

// String returns a human-readable report type name.
func (t ReportType) String() string {
	switch t {
	case ReportTypeReserved:
		return "reserved"
	case ReportTypeInput:
		return "input"
	case ReportTypeOutput:
		return "output"
	case ReportTypeFeature:
		return "feature"
	default:
		return "unknown"
	}
}

// Command is one request written to the command register: an opcode
// byte followed by a byte packing the report type into the high nibble
// and the report ID into the low nibble.
type Command struct {
	Opcode     Opcode
	ReportType ReportType
	ReportID   uint8 // Low four bits only
}

// MarshalTo encodes the command into buf and returns the number of
// bytes the encoding wants, always CommandSize. When buf is shorter,
// only len(buf) bytes are written.
func (c *Command) MarshalTo(buf []byte) int {
	var tmp [CommandSize]byte
	tmp[0] = byte(c.Opcode)
	tmp[1] = byte(c.ReportType)<<4 | c.ReportID&0x0F
	copy(buf, tmp[:])
	return CommandSize
}

// ParseCommand decodes a Command from data into out. Returns an error
// if data is too short, the opcode is outside the defined range, or
// the report type nibble is not a defined type.
func ParseCommand(data []byte, out *Command) error {
	if len(data) < CommandSize {
		return pkg.ErrCommandTooShort
	}
	op := Opcode(data[0])
	if op < OpcodeReset || op > OpcodeSetPower {
		return pkg.ErrInvalidCommand
	}
	t := ReportType(data[1] >> 4)
	if t > ReportTypeFeature {
		return pkg.ErrInvalidCommand
	}
	out.Opcode = op
	out.ReportType = t
	out.ReportID = data[1] & 0x0F
	return nil
}
