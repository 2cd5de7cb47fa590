package hid

import (
	"encoding/binary"

	"github.com/ardnew/softhid/pkg"
)

// DescriptorSize is the encoded size of a Descriptor in bytes. The
// descriptor's own total-length field always carries this value.
const DescriptorSize = 30

// Version is the BCD protocol version written into every encoded
// Descriptor.
const Version = 0x0100

// Descriptor is the HID Descriptor: the fixed structure a host reads
// from the descriptor register to discover the rest of the register
// map. The total-length and version fields are constants of the wire
// format and are not represented here.
type Descriptor struct {
	ReportDescLength   uint16 // Encoded length of the Report Descriptor
	ReportDescRegister uint16 // Register holding the Report Descriptor; non-zero
	InputRegister      uint16 // Register Input Reports are read from; non-zero
	MaxInputLength     uint16 // Largest Input Report, in bytes
	OutputRegister     uint16 // Register Output Reports are written to; non-zero
	MaxOutputLength    uint16 // Largest Output Report, in bytes
	CommandRegister    uint16 // Register Commands are written to; non-zero
	DataRegister       uint16 // Register exchanging data for Commands
	VendorID           uint16 // Manufacturer's vendor ID
	ProductID          uint16 // Model's product ID
	VersionID          uint16 // Firmware revision
}

// Validate checks the construction-time invariants: the report
// descriptor, input, output, and command registers must be non-zero.
// The encoder itself never validates; call this where the descriptor
// is built.
func (d *Descriptor) Validate() error {
	if d.ReportDescRegister == 0 || d.InputRegister == 0 ||
		d.OutputRegister == 0 || d.CommandRegister == 0 {
		return pkg.ErrInvalidRegister
	}
	return nil
}

// MarshalTo encodes the descriptor into buf and returns the number of
// bytes the encoding wants, always DescriptorSize. When buf is
// shorter, only len(buf) bytes are written.
func (d *Descriptor) MarshalTo(buf []byte) int {
	var tmp [DescriptorSize]byte
	binary.LittleEndian.PutUint16(tmp[0:2], DescriptorSize)
	binary.LittleEndian.PutUint16(tmp[2:4], Version)
	binary.LittleEndian.PutUint16(tmp[4:6], d.ReportDescLength)
	binary.LittleEndian.PutUint16(tmp[6:8], d.ReportDescRegister)
	binary.LittleEndian.PutUint16(tmp[8:10], d.InputRegister)
	binary.LittleEndian.PutUint16(tmp[10:12], d.MaxInputLength)
	binary.LittleEndian.PutUint16(tmp[12:14], d.OutputRegister)
	binary.LittleEndian.PutUint16(tmp[14:16], d.MaxOutputLength)
	binary.LittleEndian.PutUint16(tmp[16:18], d.CommandRegister)
	binary.LittleEndian.PutUint16(tmp[18:20], d.DataRegister)
	binary.LittleEndian.PutUint16(tmp[20:22], d.VendorID)
	binary.LittleEndian.PutUint16(tmp[22:24], d.ProductID)
	binary.LittleEndian.PutUint16(tmp[24:26], d.VersionID)
	// tmp[26:30] stays zero: reserved padding.
	copy(buf, tmp[:])
	return DescriptorSize
}

// ParseDescriptor decodes a HID Descriptor from data into out.
// Returns an error if data is too short or the embedded total-length
// field is not DescriptorSize.
func ParseDescriptor(data []byte, out *Descriptor) error {
	if len(data) < DescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if binary.LittleEndian.Uint16(data[0:2]) != DescriptorSize {
		return pkg.ErrInvalidResponse
	}
	out.ReportDescLength = binary.LittleEndian.Uint16(data[4:6])
	out.ReportDescRegister = binary.LittleEndian.Uint16(data[6:8])
	out.InputRegister = binary.LittleEndian.Uint16(data[8:10])
	out.MaxInputLength = binary.LittleEndian.Uint16(data[10:12])
	out.OutputRegister = binary.LittleEndian.Uint16(data[12:14])
	out.MaxOutputLength = binary.LittleEndian.Uint16(data[14:16])
	out.CommandRegister = binary.LittleEndian.Uint16(data[16:18])
	out.DataRegister = binary.LittleEndian.Uint16(data[18:20])
	out.VendorID = binary.LittleEndian.Uint16(data[20:22])
	out.ProductID = binary.LittleEndian.Uint16(data[22:24])
	out.VersionID = binary.LittleEndian.Uint16(data[24:26])
	return nil
}
