package bridge

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/gpio/sim"
	"github.com/ardnew/softhid/hid"
	"github.com/ardnew/softhid/joyport"
	"github.com/ardnew/softhid/pkg"
	"github.com/ardnew/softhid/ps2"
	"github.com/ardnew/softhid/ps2/ps2sim"
	"github.com/ardnew/softhid/regbus"
)

// rig is a bridge on a simulated board with scripted peripherals on
// both PS/2 ports.
type rig struct {
	t      *testing.T
	board  *sim.Board
	bridge *Bridge
	kbd    *ps2sim.Device
	mouse  *ps2sim.Device
}

func boardPins(b *sim.Board) Pins {
	return Pins{
		Keyboard: ps2.Pins{Clock: b.KeyboardClock, Data: b.KeyboardData},
		Mouse:    ps2.Pins{Clock: b.MouseClock, Data: b.MouseData},
		Joy1:     joyPins(b.Joy1),
		Joy2:     joyPins(b.Joy2),

		PowerButton: b.PowerButton,
		ResetButton: b.ResetButton,
		PowerLED:    b.PowerLED,
		DiskLED:     b.DiskLED,
	}
}

func joyPins(l sim.JoystickLines) joyport.Pins {
	return joyport.Pins{
		Up:     l.Up,
		Down:   l.Down,
		Left:   l.Left,
		Right:  l.Right,
		AB:     l.AB,
		StartC: l.StartC,
		Select: l.Select,
	}
}

func newRig(t *testing.T) *rig {
	t.Helper()
	board := sim.NewBoard()
	bridge, err := NewBridge(Config{Pins: boardPins(board), Clock: board.Clock})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}

	ack := func(byte) []byte { return []byte{0xFA} }
	r := &rig{
		t:      t,
		board:  board,
		bridge: bridge,
		kbd:    ps2sim.NewDevice(board.KeyboardClock, board.KeyboardData, ps2sim.Config{Responder: ack}),
		mouse:  ps2sim.NewDevice(board.MouseClock, board.MouseData, ps2sim.Config{Responder: ack}),
	}

	// Let the enable-reporting handshake with the mouse finish; the
	// acknowledge must not surface as a report.
	r.run(6000)
	if got := bridge.Pending(); got != 0 {
		t.Fatalf("Pending() after setup = %d, want 0", got)
	}
	return r
}

// run pumps the simulation in 10us steps for the given budget.
func (r *rig) run(budgetMicros uint32) {
	for elapsed := uint32(0); elapsed < budgetMicros; elapsed += 10 {
		r.board.Clock.Advance(10)
		r.kbd.Tick(r.board.Clock.Micros())
		r.mouse.Tick(r.board.Clock.Micros())
		r.bridge.Step()
	}
}

// readInput pops one framed report from the input register. An empty
// queue returns id 0 and a nil payload.
func (r *rig) readInput() (id uint8, payload []byte) {
	r.t.Helper()
	var buf [maxInputFrameSize]byte
	n, err := r.bridge.ReadRegister(regbus.RegInput, buf[:])
	if err != nil {
		r.t.Fatalf("ReadRegister(input) error = %v", err)
	}
	total := int(binary.LittleEndian.Uint16(buf[0:2]))
	if total == 0 {
		if n != 2 {
			r.t.Fatalf("empty frame read %d bytes, want 2", n)
		}
		return 0, nil
	}
	if total != n {
		r.t.Fatalf("frame declares %d bytes, read %d", total, n)
	}
	return buf[2], append([]byte(nil), buf[hid.ReportFrameOverhead:n]...)
}

func outputFrame(id, bits uint8) []byte {
	return []byte{maxOutputFrameSize, 0, id, bits}
}

func TestNewBridge(t *testing.T) {
	board := sim.NewBoard()

	if _, err := NewBridge(Config{Pins: boardPins(board)}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewBridge without clock: error = %v, want %v", err, pkg.ErrInvalidParameter)
	}

	pins := boardPins(board)
	pins.PowerLED = nil
	if _, err := NewBridge(Config{Pins: pins, Clock: board.Clock}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewBridge without LED pin: error = %v, want %v", err, pkg.ErrInvalidParameter)
	}

	b, err := NewBridge(Config{Pins: boardPins(board), Clock: board.Clock})
	if err != nil {
		t.Fatalf("NewBridge() error = %v", err)
	}
	desc := b.Descriptor()
	if desc.VendorID != DefaultVendorID || desc.ProductID != DefaultProductID {
		t.Errorf("identity = %04x:%04x, want %04x:%04x",
			desc.VendorID, desc.ProductID, DefaultVendorID, DefaultProductID)
	}
	if desc.MaxInputLength != maxInputFrameSize {
		t.Errorf("MaxInputLength = %d, want %d", desc.MaxInputLength, maxInputFrameSize)
	}
	if int(desc.ReportDescLength) != ReportDescriptor().Size() {
		t.Errorf("ReportDescLength = %d, want %d", desc.ReportDescLength, ReportDescriptor().Size())
	}
}

func TestBridge_KeyboardReport(t *testing.T) {
	r := newRig(t)

	r.kbd.Send(0x1C) // make code of the A key
	r.run(3000)

	id, payload := r.readInput()
	if id != ReportIDKeyboard {
		t.Fatalf("report ID = %d, want %d", id, ReportIDKeyboard)
	}
	want := []byte{0, 0, 0x04, 0, 0, 0, 0, 0}
	if len(payload) != len(want) {
		t.Fatalf("payload = %d bytes, want %d", len(payload), len(want))
	}
	for i := range want {
		if payload[i] != want[i] {
			t.Fatalf("payload = %#v, want %#v", payload, want)
		}
	}

	r.kbd.Send(0xF0, 0x1C)
	r.run(4000)

	id, payload = r.readInput()
	if id != ReportIDKeyboard {
		t.Fatalf("release report ID = %d, want %d", id, ReportIDKeyboard)
	}
	for i, b := range payload {
		if b != 0 {
			t.Fatalf("release payload[%d] = %#02x, want 0", i, b)
		}
	}

	if id, _ := r.readInput(); id != 0 {
		t.Errorf("queue not drained: popped report %d", id)
	}
}

func TestBridge_KeyboardModifiers(t *testing.T) {
	r := newRig(t)

	r.kbd.Send(0x12) // left shift
	r.run(3000)

	_, payload := r.readInput()
	if len(payload) == 0 || payload[0] != 0x02 {
		t.Errorf("modifier payload = %#v, want bit 1 set", payload)
	}
}

func TestBridge_MouseReport(t *testing.T) {
	r := newRig(t)

	r.mouse.Send(mouseSync|MouseButtonLeft, 5, 3)
	r.run(5000)

	id, payload := r.readInput()
	if id != ReportIDMouse {
		t.Fatalf("report ID = %d, want %d", id, ReportIDMouse)
	}
	if len(payload) != MouseReportSize {
		t.Fatalf("payload = %d bytes, want %d", len(payload), MouseReportSize)
	}
	if payload[0] != MouseButtonLeft {
		t.Errorf("buttons = %#02x, want %#02x", payload[0], MouseButtonLeft)
	}
	// The wire counts Y upward, the report downward.
	if int8(payload[1]) != 5 || int8(payload[2]) != -3 {
		t.Errorf("deltas = (%d, %d), want (5, -3)", int8(payload[1]), int8(payload[2]))
	}
}

func TestBridge_JoystickReport(t *testing.T) {
	r := newRig(t)

	r.board.Joy1.Up.SetPeripheral(gpio.Low)
	r.board.Joy1.AB.SetPeripheral(gpio.Low)
	r.run(2000)

	id, payload := r.readInput()
	if id != ReportIDJoystick1 {
		t.Fatalf("report ID = %d, want %d", id, ReportIDJoystick1)
	}
	if want := uint8(JoyUp | JoyButtonA); payload[0] != want {
		t.Errorf("bits = %#02x, want %#02x", payload[0], want)
	}

	r.board.Joy1.Up.SetPeripheral(gpio.High)
	r.board.Joy1.AB.SetPeripheral(gpio.High)
	r.run(2000)

	if _, payload = r.readInput(); payload[0] != 0 {
		t.Errorf("release bits = %#02x, want 0", payload[0])
	}

	// The unused port never reported.
	if id, _ := r.readInput(); id != 0 {
		t.Errorf("unexpected report %d", id)
	}
}

func TestBridge_PanelReport(t *testing.T) {
	r := newRig(t)

	r.board.PowerButton.SetPeripheral(gpio.Low)
	r.run(2000)

	id, payload := r.readInput()
	if id != ReportIDPanel {
		t.Fatalf("report ID = %d, want %d", id, ReportIDPanel)
	}
	if payload[0] != PanelPower {
		t.Errorf("bits = %#02x, want %#02x", payload[0], PanelPower)
	}

	r.board.PowerButton.SetPeripheral(gpio.High)
	r.run(2000)

	if _, payload = r.readInput(); payload[0] != 0 {
		t.Errorf("release bits = %#02x, want 0", payload[0])
	}
}

func TestBridge_InterruptLifecycle(t *testing.T) {
	r := newRig(t)

	var levels []bool
	r.bridge.SetInterrupt(func(on bool) { levels = append(levels, on) })
	if len(levels) != 1 || levels[0] {
		t.Fatalf("levels after registration = %v, want [false]", levels)
	}

	r.board.ResetButton.SetPeripheral(gpio.Low)
	r.run(2000)
	if len(levels) != 2 || !levels[1] {
		t.Fatalf("levels after report = %v, want [false true]", levels)
	}

	r.readInput()
	if len(levels) != 3 || levels[2] {
		t.Fatalf("levels after drain = %v, want [false true false]", levels)
	}
}

func TestBridge_KeyboardLEDRoundTrip(t *testing.T) {
	r := newRig(t)

	err := r.bridge.WriteRegister(regbus.RegOutput, outputFrame(ReportIDKeyboardLEDs, LEDNumLock|LEDCapsLock))
	if err != nil {
		t.Fatalf("WriteRegister(output) error = %v", err)
	}
	r.run(8000)

	got := r.kbd.Received()
	if len(got) != 2 || got[0] != kbdSetLEDs || got[1] != 0x06 {
		t.Fatalf("keyboard received %#v, want [0xed 0x06]", got)
	}
	// The acknowledge bytes must not become reports.
	if got := r.bridge.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}
}

func TestBridge_SystemLEDs(t *testing.T) {
	r := newRig(t)

	if err := r.bridge.WriteRegister(regbus.RegOutput, outputFrame(ReportIDSystemLEDs, LEDPower)); err != nil {
		t.Fatalf("WriteRegister(output) error = %v", err)
	}
	if got := r.board.PowerLED.Read(); got != gpio.High {
		t.Errorf("power LED = %v, want %v", got, gpio.High)
	}
	if got := r.board.DiskLED.Read(); got != gpio.Low {
		t.Errorf("disk LED = %v, want %v", got, gpio.Low)
	}

	if err := r.bridge.WriteRegister(regbus.RegOutput, outputFrame(ReportIDSystemLEDs, 0)); err != nil {
		t.Fatalf("WriteRegister(output) error = %v", err)
	}
	if got := r.board.PowerLED.Read(); got != gpio.Low {
		t.Errorf("power LED after clear = %v, want %v", got, gpio.Low)
	}
}

func TestBridge_QueueOverflow(t *testing.T) {
	r := newRig(t)

	// Toggle the power button once per scan; only the queue capacity
	// worth of changes is kept.
	for i := 0; i < 17; i++ {
		level := gpio.Low
		if i%2 == 1 {
			level = gpio.High
		}
		r.board.PowerButton.SetPeripheral(level)
		r.run(1500)
	}

	if got := r.bridge.Pending(); got != 16 {
		t.Errorf("Pending() = %d, want 16", got)
	}
	if got := r.bridge.Stats().ReportsDropped; got == 0 {
		t.Error("Stats().ReportsDropped = 0, want at least 1")
	}

	for i := 0; i < 16; i++ {
		if id, _ := r.readInput(); id != ReportIDPanel {
			t.Fatalf("report %d ID = %d, want %d", i, id, ReportIDPanel)
		}
	}
	if id, _ := r.readInput(); id != 0 {
		t.Errorf("queue not empty after draining capacity")
	}
}

func TestBridge_ResetCommand(t *testing.T) {
	r := newRig(t)

	r.kbd.Send(0x1C)
	r.run(3000)
	if got := r.bridge.Pending(); got != 1 {
		t.Fatalf("Pending() = %d, want 1", got)
	}

	cmd := hid.Command{Opcode: hid.OpcodeReset}
	var buf [hid.CommandSize]byte
	cmd.MarshalTo(buf[:])
	if err := r.bridge.WriteRegister(regbus.RegCommand, buf[:]); err != nil {
		t.Fatalf("WriteRegister(command) error = %v", err)
	}

	if got := r.bridge.Pending(); got != 0 {
		t.Errorf("Pending() after reset = %d, want 0", got)
	}
	if id, _ := r.readInput(); id != 0 {
		t.Errorf("report survived reset")
	}
	if got := r.bridge.Stats().Resets; got != 1 {
		t.Errorf("Stats().Resets = %d, want 1", got)
	}

	// Reset re-arms mouse streaming.
	r.run(6000)
	f4s := 0
	for _, b := range r.mouse.Received() {
		if b == mouseEnableReporting {
			f4s++
		}
	}
	if f4s != 2 {
		t.Errorf("mouse received %d enable commands, want 2", f4s)
	}

	// Keyboard state restarts clean: the same key queues a fresh report.
	r.kbd.Send(0x1C)
	r.run(3000)
	if got := r.bridge.Pending(); got != 1 {
		t.Errorf("Pending() after repress = %d, want 1", got)
	}
}

func TestBridge_RunGuard(t *testing.T) {
	r := newRig(t)

	r.bridge.mu.Lock()
	r.bridge.running = true
	r.bridge.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := r.bridge.Run(ctx); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("Run() while running: error = %v, want %v", err, pkg.ErrAlreadyRunning)
	}
}
