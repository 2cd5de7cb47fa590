package bridge

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softhid/hid"
	"github.com/ardnew/softhid/pkg"
	"github.com/ardnew/softhid/regbus"
)

var _ regbus.Handler = (*Bridge)(nil)

// ReadRegister implements [regbus.Handler]. Reading the input register
// pops the next queued report; a zero length field means the queue is
// drained. Reads return the full size of the register's contents even
// when buf truncates them.
func (b *Bridge) ReadRegister(reg uint16, buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch reg {
	case regbus.RegHIDDescriptor:
		return b.desc.MarshalTo(buf), nil
	case regbus.RegReportDescriptor:
		copy(buf, b.reportDesc)
		return len(b.reportDesc), nil
	case regbus.RegInput:
		return b.readInput(buf), nil
	case regbus.RegData:
		return b.readData(buf), nil
	default:
		return 0, fmt.Errorf("read register %#04x: %w", reg, pkg.ErrInvalidRegister)
	}
}

// WriteRegister implements [regbus.Handler].
func (b *Bridge) WriteRegister(reg uint16, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch reg {
	case regbus.RegOutput:
		return b.writeOutput(data)
	case regbus.RegCommand:
		return b.writeCommand(data)
	default:
		return fmt.Errorf("write register %#04x: %w", reg, pkg.ErrInvalidRegister)
	}
}

// readInput pops one queued report into buf. The interrupt deasserts
// when the pop empties the queue.
func (b *Bridge) readInput(buf []byte) int {
	entry, ok := b.queue.pop()
	if !ok {
		return hid.EncodeEmptyFrame(buf)
	}
	n := hid.EncodeReportFrame(buf, entry.id, entry.payload[:entry.length])
	if b.queue.len() == 0 {
		b.setInterruptLocked(false)
	}
	return n
}

// readData returns whatever the last GetReport staged. The staging
// survives repeated reads until the next command replaces it.
func (b *Bridge) readData(buf []byte) int {
	if b.dataLen == 0 {
		return hid.EncodeEmptyFrame(buf)
	}
	copy(buf, b.dataBuf[:b.dataLen])
	return b.dataLen
}

// writeOutput routes a length-prefixed output report by its ID. The
// frame must declare exactly the bytes written.
func (b *Bridge) writeOutput(data []byte) error {
	if len(data) < hid.ReportFrameOverhead {
		return fmt.Errorf("output report %d bytes: %w", len(data), pkg.ErrInvalidReport)
	}
	declared := int(binary.LittleEndian.Uint16(data[0:2]))
	if declared != len(data) {
		return fmt.Errorf("output report declares %d of %d bytes: %w",
			declared, len(data), pkg.ErrInvalidReport)
	}
	id := data[2]
	payload := data[hid.ReportFrameOverhead:]
	if len(payload) < LEDReportSize {
		return fmt.Errorf("output report %d without payload: %w", id, pkg.ErrInvalidReport)
	}

	switch id {
	case ReportIDKeyboardLEDs:
		b.setKeyboardLEDs(payload[0])
	case ReportIDSystemLEDs:
		b.setSystemLEDs(payload[0])
	default:
		return fmt.Errorf("output report %d: %w", id, pkg.ErrUnknownReportID)
	}
	b.stats.OutputReports++
	pkg.LogDebug(pkg.ComponentBridge, "output report", "id", id, "bits", payload[0])
	return nil
}

// writeCommand parses and executes a command register write. SetReport
// carries its report frame inline after the two command bytes, the
// way a wire transaction concatenates the command and data registers.
func (b *Bridge) writeCommand(data []byte) error {
	var cmd hid.Command
	if err := hid.ParseCommand(data, &cmd); err != nil {
		return err
	}
	b.stats.Commands++
	pkg.LogDebug(pkg.ComponentBridge, "command",
		"opcode", cmd.Opcode.String(), "type", cmd.ReportType.String(), "id", cmd.ReportID)

	switch cmd.Opcode {
	case hid.OpcodeReset:
		b.resetLocked()
		return nil
	case hid.OpcodeGetReport:
		return b.stageReport(cmd.ReportType, cmd.ReportID)
	case hid.OpcodeSetReport:
		if cmd.ReportType != hid.ReportTypeOutput {
			return fmt.Errorf("set %s report: %w", cmd.ReportType, pkg.ErrInvalidCommand)
		}
		return b.writeOutput(data[hid.CommandSize:])
	default:
		// Idle, protocol, and power requests are accepted as no-ops.
		return nil
	}
}

// stageReport snapshots the addressed report into the data register.
func (b *Bridge) stageReport(typ hid.ReportType, id uint8) error {
	var payload [KeyboardReportSize]byte
	var n int

	switch typ {
	case hid.ReportTypeInput:
		switch id {
		case ReportIDKeyboard:
			n = b.lastKeyboard.MarshalTo(payload[:])
		case ReportIDMouse:
			// Deltas are not state; only the buttons persist.
			rep := MouseReport{Buttons: b.mouseButtons}
			n = rep.MarshalTo(payload[:])
		case ReportIDJoystick1:
			n = b.lastJoy[0].MarshalTo(payload[:])
		case ReportIDJoystick2:
			n = b.lastJoy[1].MarshalTo(payload[:])
		case ReportIDPanel:
			n = b.lastPanel.MarshalTo(payload[:])
		default:
			return fmt.Errorf("get input report %d: %w", id, pkg.ErrUnknownReportID)
		}
	case hid.ReportTypeOutput:
		switch id {
		case ReportIDKeyboardLEDs:
			payload[0] = b.keyboardLEDs
			n = LEDReportSize
		case ReportIDSystemLEDs:
			payload[0] = b.systemLEDs
			n = LEDReportSize
		default:
			return fmt.Errorf("get output report %d: %w", id, pkg.ErrUnknownReportID)
		}
	default:
		return fmt.Errorf("get %s report: %w", typ, pkg.ErrUnknownReportID)
	}

	b.dataLen = hid.EncodeReportFrame(b.dataBuf[:], id, payload[:n])
	return nil
}
