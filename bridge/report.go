package bridge

import (
	"github.com/ardnew/softhid/hid/report"
	"github.com/ardnew/softhid/joyport"
	"github.com/ardnew/softhid/keymap"
)

// Report IDs of the input reports the bridge generates.
const (
	ReportIDKeyboard  = 1
	ReportIDMouse     = 2
	ReportIDJoystick1 = 3
	ReportIDJoystick2 = 4
	ReportIDPanel     = 5
)

// Report IDs of the output reports the bridge accepts.
const (
	ReportIDKeyboardLEDs = ReportIDKeyboard
	ReportIDSystemLEDs   = 6
)

// Report payload sizes in bytes. Payloads exclude the report ID; the
// ID travels in the length-prefixed frame around the payload.
const (
	KeyboardReportSize = 8
	MouseReportSize    = 3
	JoystickReportSize = 1
	PanelReportSize    = 1
	LEDReportSize      = 1
)

// KeyboardReport is the boot-protocol keyboard input report: a
// modifier bitmap, a reserved byte, and six usage slots.
type KeyboardReport struct {
	Modifiers uint8
	Reserved  uint8
	Keys      [6]uint8
}

// MarshalTo serializes the report into buf, returning the number of
// bytes written. buf must hold at least KeyboardReportSize bytes.
func (r *KeyboardReport) MarshalTo(buf []byte) int {
	if len(buf) < KeyboardReportSize {
		return 0
	}
	buf[0] = r.Modifiers
	buf[1] = r.Reserved
	copy(buf[2:KeyboardReportSize], r.Keys[:])
	return KeyboardReportSize
}

// Clear resets the report to the no-keys-pressed state.
func (r *KeyboardReport) Clear() {
	*r = KeyboardReport{}
}

// MouseReport is the boot-protocol mouse input report. X and Y are
// deltas since the previous report, positive right and down.
type MouseReport struct {
	Buttons uint8
	X       int8
	Y       int8
}

// Mouse button bits.
const (
	MouseButtonLeft   = 1 << 0
	MouseButtonRight  = 1 << 1
	MouseButtonMiddle = 1 << 2
)

// MarshalTo serializes the report into buf, returning the number of
// bytes written. buf must hold at least MouseReportSize bytes.
func (r *MouseReport) MarshalTo(buf []byte) int {
	if len(buf) < MouseReportSize {
		return 0
	}
	buf[0] = r.Buttons
	buf[1] = uint8(r.X)
	buf[2] = uint8(r.Y)
	return MouseReportSize
}

// Clear resets the report to the no-buttons, no-motion state.
func (r *MouseReport) Clear() {
	*r = MouseReport{}
}

// JoystickReport is the input report of one joystick port, a single
// byte of switch bits.
type JoystickReport struct {
	Bits uint8
}

// Joystick report bits. The order follows the usage listing of the
// report descriptor, not the wiring order of the connector.
const (
	JoyUp      = 1 << 0
	JoyDown    = 1 << 1
	JoyRight   = 1 << 2
	JoyLeft    = 1 << 3
	JoyButtonA = 1 << 4
	JoyButtonB = 1 << 5
	JoyButtonC = 1 << 6
	JoyStart   = 1 << 7
)

// NewJoystickReport converts a port reading into report bit order.
func NewJoystickReport(r joyport.Reading) JoystickReport {
	var b uint8
	if r.Pressed(joyport.Up) {
		b |= JoyUp
	}
	if r.Pressed(joyport.Down) {
		b |= JoyDown
	}
	if r.Pressed(joyport.Right) {
		b |= JoyRight
	}
	if r.Pressed(joyport.Left) {
		b |= JoyLeft
	}
	if r.Pressed(joyport.ButtonA) {
		b |= JoyButtonA
	}
	if r.Pressed(joyport.ButtonB) {
		b |= JoyButtonB
	}
	if r.Pressed(joyport.ButtonC) {
		b |= JoyButtonC
	}
	if r.Pressed(joyport.Start) {
		b |= JoyStart
	}
	return JoystickReport{Bits: b}
}

// MarshalTo serializes the report into buf, returning the number of
// bytes written. buf must hold at least JoystickReportSize bytes.
func (r *JoystickReport) MarshalTo(buf []byte) int {
	if len(buf) < JoystickReportSize {
		return 0
	}
	buf[0] = r.Bits
	return JoystickReportSize
}

// PanelReport carries the front-panel switches, a single byte of
// momentary button bits.
type PanelReport struct {
	Bits uint8
}

// Panel report bits.
const (
	PanelPower = 1 << 0
	PanelReset = 1 << 1
)

// MarshalTo serializes the report into buf, returning the number of
// bytes written. buf must hold at least PanelReportSize bytes.
func (r *PanelReport) MarshalTo(buf []byte) int {
	if len(buf) < PanelReportSize {
		return 0
	}
	buf[0] = r.Bits
	return PanelReportSize
}

// Keyboard LED output report bits, as a HID host sends them.
const (
	LEDNumLock    = 1 << 0
	LEDCapsLock   = 1 << 1
	LEDScrollLock = 1 << 2
)

// System LED output report bits.
const (
	LEDPower = 1 << 0
	LEDDisk  = 1 << 1
)

// ReportDescriptor builds the report descriptor covering every
// collection the bridge exposes: boot keyboard, boot mouse, two
// joysticks, the front panel, and the system LED indicators.
func ReportDescriptor() report.Descriptor {
	d := report.Descriptor{
		// Keyboard, boot protocol layout behind report ID 1. The same
		// ID carries the LED output report.
		report.UsagePage(report.PageGenericDesktop),
		report.Usage(report.DesktopKeyboard),
		report.Collection(report.CollectionApplication),
		report.ReportID(ReportIDKeyboard),
		report.UsagePage(report.PageKeyboardKeypad),
		report.UsageMinimum(uint32(keymap.KeyLeftCtrl)),
		report.UsageMaximum(uint32(keymap.KeyRightGUI)),
		report.LogicalMinimum(0),
		report.LogicalMaximum(1),
		report.ReportSize(1),
		report.ReportCount(8),
		report.Input(report.Variable),
		report.ReportCount(1),
		report.ReportSize(8),
		report.Input(report.Constant),
		report.UsagePage(report.PageLEDs),
		report.UsageMinimum(uint32(report.LEDNumLock)),
		report.UsageMaximum(uint32(report.LEDScrollLock)),
		report.ReportSize(1),
		report.ReportCount(3),
		report.Output(report.Variable),
		report.ReportCount(5),
		report.Output(report.Constant),
		report.UsagePage(report.PageKeyboardKeypad),
		report.UsageMinimum(uint32(keymap.KeyNone)),
		report.UsageMaximum(uint32(keymap.KeyApplication)),
		report.LogicalMinimum(0),
		report.LogicalMaximum(uint32(keymap.KeyApplication)),
		report.ReportSize(8),
		report.ReportCount(6),
		report.Input(0),
		report.EndCollection(),

		// Mouse, boot protocol layout behind report ID 2.
		report.UsagePage(report.PageGenericDesktop),
		report.Usage(report.DesktopMouse),
		report.Collection(report.CollectionApplication),
		report.ReportID(ReportIDMouse),
		report.Usage(report.DesktopPointer),
		report.Collection(report.CollectionPhysical),
		report.UsagePage(report.PageButtons),
		report.UsageMinimum(1),
		report.UsageMaximum(3),
		report.LogicalMinimum(0),
		report.LogicalMaximum(1),
		report.ReportSize(1),
		report.ReportCount(3),
		report.Input(report.Variable),
		report.ReportCount(1),
		report.ReportSize(5),
		report.Input(report.Constant),
		report.UsagePage(report.PageGenericDesktop),
		report.Usage(report.DesktopX),
		report.Usage(report.DesktopY),
		// One byte each; 0x81 reads back as -127 at this width.
		report.LogicalMinimum(0x81),
		report.LogicalMaximum(0x7F),
		report.ReportSize(8),
		report.ReportCount(2),
		report.Input(report.Variable | report.Relative),
		report.EndCollection(),
		report.EndCollection(),
	}

	d = appendJoystick(d, ReportIDJoystick1)
	d = appendJoystick(d, ReportIDJoystick2)

	d = append(d,
		// Front panel behind report ID 5.
		report.UsagePage(report.PageGenericDesktop),
		report.Usage(report.DesktopSystemControl),
		report.Collection(report.CollectionApplication),
		report.ReportID(ReportIDPanel),
		report.LogicalMinimum(0),
		report.LogicalMaximum(1),
		report.ReportSize(1),
		report.ReportCount(2),
		report.Usage(report.DesktopSystemPowerDown),
		report.Usage(report.DesktopSystemWarmRestart),
		report.Input(report.Variable),
		report.ReportCount(6),
		report.Input(report.Constant),
		report.EndCollection(),

		// System LED indicators behind output report ID 6.
		report.UsagePage(report.PageLEDs),
		report.Usage(report.LEDGenericIndicator),
		report.Collection(report.CollectionApplication),
		report.ReportID(ReportIDSystemLEDs),
		report.LogicalMinimum(0),
		report.LogicalMaximum(1),
		report.ReportSize(1),
		report.ReportCount(2),
		report.UsageMinimum(uint32(report.LEDGenericIndicator)),
		report.UsageMaximum(uint32(report.LEDGenericIndicator)+1),
		report.Output(report.Variable),
		report.ReportCount(6),
		report.Output(report.Constant),
		report.EndCollection(),
	)

	return d
}

// appendJoystick appends one joystick collection. The four direction
// usages are listed individually so each maps to its own bit.
func appendJoystick(d report.Descriptor, id uint32) report.Descriptor {
	return append(d,
		report.UsagePage(report.PageGenericDesktop),
		report.Usage(report.DesktopJoystick),
		report.Collection(report.CollectionApplication),
		report.ReportID(id),
		report.LogicalMinimum(0),
		report.LogicalMaximum(1),
		report.ReportSize(1),
		report.ReportCount(4),
		report.Usage(report.DesktopDPadUp),
		report.Usage(report.DesktopDPadDown),
		report.Usage(report.DesktopDPadRight),
		report.Usage(report.DesktopDPadLeft),
		report.Input(report.Variable),
		report.UsagePage(report.PageButtons),
		report.UsageMinimum(1),
		report.UsageMaximum(4),
		report.ReportCount(4),
		report.Input(report.Variable),
		report.EndCollection(),
	)
}
