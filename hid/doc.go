// Package hid implements the register-level HID wire structures
// carried over I2C or UART: the fixed 30-byte HID Descriptor a host
// reads first, and the 2-byte HID Command written to the command
// register.
//
// # Register Model
//
// The host discovers the whole register map from the HID Descriptor:
// which register holds the Report Descriptor, where Input Reports are
// read, where Output Reports and Commands are written, and the maximum
// report lengths. Every multi-byte field is little-endian.
//
// # Encoding Contract
//
// MarshalTo never writes past the supplied buffer and returns the
// number of bytes the encoding wants. A return value larger than
// len(buf) means the output was truncated and the caller should retry
// with more space. The report subpackage applies the same contract to
// Report Descriptor items.
package hid
