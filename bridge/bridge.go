package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/hid"
	"github.com/ardnew/softhid/joyport"
	"github.com/ardnew/softhid/keymap"
	"github.com/ardnew/softhid/pkg"
	"github.com/ardnew/softhid/ps2"
	"github.com/ardnew/softhid/regbus"
)

// Defaults of the configurable identity and cadence fields.
const (
	DefaultVendorID           = 0x1209
	DefaultProductID          = 0x6502
	DefaultVersionID          = 0x0100
	DefaultScanIntervalMicros = 1000
	DefaultPollInterval       = 200 * time.Microsecond
)

// PS/2 keyboard command bytes.
const kbdSetLEDs = 0xED

// Largest report frames the register file exchanges, in the
// length-prefixed shape of [hid.EncodeReportFrame].
const (
	maxInputFrameSize  = hid.ReportFrameOverhead + KeyboardReportSize
	maxOutputFrameSize = hid.ReportFrameOverhead + LEDReportSize
)

// Pins collects every line the bridge drives or samples.
type Pins struct {
	Keyboard ps2.Pins
	Mouse    ps2.Pins
	Joy1     joyport.Pins
	Joy2     joyport.Pins

	PowerButton gpio.Pin
	ResetButton gpio.Pin

	PowerLED gpio.Pin
	DiskLED  gpio.Pin
}

func (p Pins) validate() error {
	for _, pin := range [...]gpio.Pin{p.PowerButton, p.ResetButton, p.PowerLED, p.DiskLED} {
		if pin == nil {
			return fmt.Errorf("nil panel pin: %w", pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// Config carries the construction parameters of a bridge. Zero fields
// select the defaults.
type Config struct {
	Pins  Pins
	Clock gpio.Clock

	// Link is applied to both PS/2 ports.
	Link ps2.Config

	// ScanIntervalMicros is the joystick and panel sampling cadence.
	ScanIntervalMicros uint32

	// PollInterval is the Step cadence of Run.
	PollInterval time.Duration

	VendorID  uint16
	ProductID uint16
	VersionID uint16
}

func (c Config) withDefaults() Config {
	if c.ScanIntervalMicros == 0 {
		c.ScanIntervalMicros = DefaultScanIntervalMicros
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.VendorID == 0 {
		c.VendorID = DefaultVendorID
	}
	if c.ProductID == 0 {
		c.ProductID = DefaultProductID
	}
	if c.VersionID == 0 {
		c.VersionID = DefaultVersionID
	}
	return c
}

// Stats counts bridge events for diagnostics. Snapshot via
// [Bridge.Stats].
type Stats struct {
	ReportsQueued  uint32 // Input reports accepted into the queue
	ReportsDropped uint32 // Input reports rejected by a full queue
	OutputReports  uint32 // Output reports routed by ID
	Commands       uint32 // Commands parsed from the command register
	Resets         uint32 // Reset commands executed
	MouseDropped   uint32 // Mouse bytes discarded hunting for sync
}

// queuedReport is one pending input report. The payload array is
// sized for the largest report.
type queuedReport struct {
	id      uint8
	length  uint8
	payload [KeyboardReportSize]byte
}

// reportQueue is a fixed-capacity ring of pending input reports. A
// full queue rejects new reports; the freshest state reaches the host
// through a later change or a GetReport command.
type reportQueue struct {
	entries [16]queuedReport
	head    int
	count   int
}

func (q *reportQueue) push(id uint8, payload []byte) bool {
	if q.count == len(q.entries) {
		return false
	}
	e := &q.entries[(q.head+q.count)%len(q.entries)]
	e.id = id
	e.length = uint8(copy(e.payload[:], payload))
	q.count++
	return true
}

func (q *reportQueue) pop() (queuedReport, bool) {
	if q.count == 0 {
		return queuedReport{}, false
	}
	e := q.entries[q.head]
	q.head = (q.head + 1) % len(q.entries)
	q.count--
	return e, true
}

func (q *reportQueue) clear() {
	q.head = 0
	q.count = 0
}

func (q *reportQueue) len() int { return q.count }

// Bridge owns the input side of the device: two PS/2 links, two
// joystick ports, and the panel lines. It folds their activity into
// HID input reports and serves them through the register file.
//
// All methods are safe for concurrent use. Step is the single
// processing entry point; a transport goroutine may call the register
// methods at any time.
type Bridge struct {
	mu sync.Mutex

	cfg   Config
	clock gpio.Clock

	keyboard *ps2.Link
	mouse    *ps2.Link
	joy1     *joyport.Port
	joy2     *joyport.Port

	decoder   keymap.Decoder
	tracker   keymap.Keyboard
	assembler MouseAssembler

	lastKeyboard KeyboardReport
	mouseButtons uint8
	lastJoy      [2]JoystickReport
	lastPanel    PanelReport

	keyboardLEDs uint8
	systemLEDs   uint8

	queue   reportQueue
	dataBuf [maxInputFrameSize]byte
	dataLen int

	desc       hid.Descriptor
	reportDesc []byte

	interrupt func(bool)
	irqLevel  bool

	lastScan uint32
	running  bool

	stats Stats
}

// NewBridge binds a bridge to its pins and clock: PS/2 links created
// idle, joystick ports scanned from their first Step, panel buttons
// pulled up, LEDs driven off. The mouse is asked to start streaming.
func NewBridge(cfg Config) (*Bridge, error) {
	cfg = cfg.withDefaults()
	if cfg.Clock == nil {
		return nil, fmt.Errorf("bridge: nil clock: %w", pkg.ErrInvalidParameter)
	}
	if err := cfg.Pins.validate(); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	keyboard, err := ps2.NewLink("keyboard", cfg.Pins.Keyboard, cfg.Clock, cfg.Link)
	if err != nil {
		return nil, err
	}
	mouse, err := ps2.NewLink("mouse", cfg.Pins.Mouse, cfg.Clock, cfg.Link)
	if err != nil {
		return nil, err
	}
	joy1, err := joyport.NewPort("joy1", cfg.Pins.Joy1)
	if err != nil {
		return nil, err
	}
	joy2, err := joyport.NewPort("joy2", cfg.Pins.Joy2)
	if err != nil {
		return nil, err
	}

	wireEdges(cfg.Pins.Keyboard.Clock, keyboard)
	wireEdges(cfg.Pins.Mouse.Clock, mouse)

	cfg.Pins.PowerButton.SetMode(gpio.ModeInputPullup)
	cfg.Pins.ResetButton.SetMode(gpio.ModeInputPullup)
	gpio.DriveLow(cfg.Pins.PowerLED)
	gpio.DriveLow(cfg.Pins.DiskLED)

	items := ReportDescriptor()
	encoded := make([]byte, items.Size())
	items.MarshalTo(encoded)

	b := &Bridge{
		cfg:        cfg,
		clock:      cfg.Clock,
		keyboard:   keyboard,
		mouse:      mouse,
		joy1:       joy1,
		joy2:       joy2,
		reportDesc: encoded,
		desc: hid.Descriptor{
			ReportDescLength:   uint16(len(encoded)),
			ReportDescRegister: regbus.RegReportDescriptor,
			InputRegister:      regbus.RegInput,
			MaxInputLength:     maxInputFrameSize,
			OutputRegister:     regbus.RegOutput,
			MaxOutputLength:    maxOutputFrameSize,
			CommandRegister:    regbus.RegCommand,
			DataRegister:       regbus.RegData,
			VendorID:           cfg.VendorID,
			ProductID:          cfg.ProductID,
			VersionID:          cfg.VersionID,
		},
	}
	if err := b.desc.Validate(); err != nil {
		return nil, err
	}
	b.kickMouse()

	pkg.LogInfo(pkg.ComponentBridge, "bridge ready",
		"reportDescriptor", len(encoded),
		"vendor", fmt.Sprintf("%04x", cfg.VendorID),
		"product", fmt.Sprintf("%04x", cfg.ProductID))
	return b, nil
}

// wireEdges routes a clock line's edge callback into the link when the
// platform pin supports notification. Without it the link can still
// transmit but never receives.
func wireEdges(pin gpio.Pin, link *ps2.Link) {
	n, ok := pin.(gpio.EdgeNotifier)
	if !ok {
		pkg.LogWarn(pkg.ComponentBridge, "clock pin has no edge notifier", "link", link.Name())
		return
	}
	n.NotifyEdge(link.OnEdge)
}

// Descriptor returns the HID Descriptor the register file serves.
func (b *Bridge) Descriptor() hid.Descriptor {
	return b.desc
}

// SetInterrupt registers the callback mirroring the interrupt line: it
// is invoked with true when the report queue becomes non-empty and
// false when it drains. The callback runs with the bridge lock held
// and must not call back into the bridge. It fires immediately with
// the current level so the transport starts in sync.
func (b *Bridge) SetInterrupt(fn func(asserted bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interrupt = fn
	if fn != nil {
		fn(b.irqLevel)
	}
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.stats
	s.MouseDropped = b.assembler.Dropped()
	return s
}

// KeyboardStats returns the keyboard link counters.
func (b *Bridge) KeyboardStats() ps2.Stats { return b.keyboard.Stats() }

// MouseStats returns the mouse link counters.
func (b *Bridge) MouseStats() ps2.Stats { return b.mouse.Stats() }

// KeymapStats returns the scancode decoder counters.
func (b *Bridge) KeymapStats() keymap.Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decoder.Stats()
}

// Pending returns how many input reports are queued.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

// Step runs one cooperative iteration: service both PS/2 links, drain
// their inbound bytes through the decoders, and sample the joysticks
// and panel on the scan cadence. Call it at least every few hundred
// microseconds; Run does.
func (b *Bridge) Step() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.keyboard.Poll()
	b.mouse.Poll()
	b.drainKeyboard()
	b.drainMouse()
	b.scanInputs()
}

// Run calls Step on the configured cadence until ctx ends. Returns
// ErrAlreadyRunning when the bridge is already being driven.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return pkg.ErrAlreadyRunning
	}
	b.running = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	pkg.LogInfo(pkg.ComponentBridge, "bridge running", "pollInterval", b.cfg.PollInterval)
	ticker := time.NewTicker(b.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			pkg.LogInfo(pkg.ComponentBridge, "bridge stopped")
			return nil
		case <-ticker.C:
			b.Step()
		}
	}
}

// Reset returns the input paths, report queue, and staged data to
// power-on state and re-arms the mouse. Hosts reach it through the
// Reset command; it is also safe to call directly.
func (b *Bridge) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
}

func (b *Bridge) resetLocked() {
	b.keyboard.Enable()
	b.mouse.Enable()
	b.decoder.Reset()
	b.tracker.Reset()
	b.assembler.Reset()
	b.queue.clear()
	b.dataLen = 0
	b.lastKeyboard = KeyboardReport{}
	b.mouseButtons = 0
	b.lastJoy = [2]JoystickReport{}
	b.lastPanel = PanelReport{}
	b.keyboardLEDs = 0
	b.setSystemLEDs(0)
	b.kickMouse()
	b.stats.Resets++
	b.setInterruptLocked(false)
	pkg.LogInfo(pkg.ComponentBridge, "bridge reset")
}

// kickMouse queues the enable-reporting command. A mouse powers up
// silent; nothing streams until it hears this.
func (b *Bridge) kickMouse() {
	if err := b.mouse.WriteBuffer([]byte{mouseEnableReporting}); err != nil {
		pkg.LogWarn(pkg.ComponentBridge, "mouse enable not queued", "error", err)
		return
	}
	b.assembler.ExpectAck()
}

func (b *Bridge) drainKeyboard() {
	changed := false
	for {
		by, ok := b.keyboard.ReadBuffer()
		if !ok {
			break
		}
		ev, ok := b.decoder.Feed(by)
		if !ok {
			continue
		}
		b.tracker.Apply(ev)
		changed = true
	}
	if !changed {
		return
	}
	modifiers, keys := b.tracker.Report()
	rep := KeyboardReport{Modifiers: modifiers, Keys: keys}
	if rep == b.lastKeyboard {
		return
	}
	b.lastKeyboard = rep
	var payload [KeyboardReportSize]byte
	rep.MarshalTo(payload[:])
	b.enqueue(ReportIDKeyboard, payload[:])
}

func (b *Bridge) drainMouse() {
	for {
		by, ok := b.mouse.ReadBuffer()
		if !ok {
			return
		}
		packet, ok := b.assembler.Feed(by)
		if !ok {
			continue
		}
		b.mouseButtons = packet.Buttons
		// PS/2 counts Y up; HID counts it down.
		rep := MouseReport{Buttons: packet.Buttons, X: packet.DX, Y: -packet.DY}
		var payload [MouseReportSize]byte
		rep.MarshalTo(payload[:])
		b.enqueue(ReportIDMouse, payload[:])
	}
}

// scanInputs samples the joysticks and panel buttons once per scan
// interval and queues a report for whichever changed.
func (b *Bridge) scanInputs() {
	now := b.clock.Micros()
	if now-b.lastScan < b.cfg.ScanIntervalMicros {
		return
	}
	b.lastScan = now

	if b.joy1.Scan() {
		rep := NewJoystickReport(b.joy1.Read())
		b.lastJoy[0] = rep
		var payload [JoystickReportSize]byte
		rep.MarshalTo(payload[:])
		b.enqueue(ReportIDJoystick1, payload[:])
	}
	if b.joy2.Scan() {
		rep := NewJoystickReport(b.joy2.Read())
		b.lastJoy[1] = rep
		var payload [JoystickReportSize]byte
		rep.MarshalTo(payload[:])
		b.enqueue(ReportIDJoystick2, payload[:])
	}

	var panel PanelReport
	if b.cfg.Pins.PowerButton.Read() == gpio.Low {
		panel.Bits |= PanelPower
	}
	if b.cfg.Pins.ResetButton.Read() == gpio.Low {
		panel.Bits |= PanelReset
	}
	if panel != b.lastPanel {
		b.lastPanel = panel
		var payload [PanelReportSize]byte
		panel.MarshalTo(payload[:])
		b.enqueue(ReportIDPanel, payload[:])
	}
}

// enqueue queues one input report and asserts the interrupt. A full
// queue drops the report and counts it.
func (b *Bridge) enqueue(id uint8, payload []byte) {
	if !b.queue.push(id, payload) {
		b.stats.ReportsDropped++
		pkg.LogWarn(pkg.ComponentBridge, "report queue full", "id", id)
		return
	}
	b.stats.ReportsQueued++
	b.setInterruptLocked(true)
}

func (b *Bridge) setInterruptLocked(level bool) {
	if b.irqLevel == level {
		return
	}
	b.irqLevel = level
	if b.interrupt != nil {
		b.interrupt(level)
	}
}

// setKeyboardLEDs translates a HID LED report into the Set-LEDs
// command and queues it to the keyboard. The acknowledge bytes the
// keyboard answers with are filtered by the scancode decoder.
func (b *Bridge) setKeyboardLEDs(bits uint8) {
	b.keyboardLEDs = bits
	cmd := [2]byte{kbdSetLEDs, ps2LEDBits(bits)}
	if err := b.keyboard.WriteBuffer(cmd[:]); err != nil {
		pkg.LogWarn(pkg.ComponentBridge, "keyboard LEDs not queued", "error", err)
	}
}

// setSystemLEDs latches the system LED report and drives the pins.
func (b *Bridge) setSystemLEDs(bits uint8) {
	b.systemLEDs = bits
	writeLED(b.cfg.Pins.PowerLED, bits&LEDPower != 0)
	writeLED(b.cfg.Pins.DiskLED, bits&LEDDisk != 0)
}

func writeLED(pin gpio.Pin, on bool) {
	if on {
		pin.Write(gpio.High)
	} else {
		pin.Write(gpio.Low)
	}
}

// ps2LEDBits converts HID LED report bits into the Set-LEDs argument.
// The two protocols order the three indicators differently.
func ps2LEDBits(hidBits uint8) uint8 {
	var bits uint8
	if hidBits&LEDNumLock != 0 {
		bits |= 1 << 1
	}
	if hidBits&LEDCapsLock != 0 {
		bits |= 1 << 2
	}
	if hidBits&LEDScrollLock != 0 {
		bits |= 1 << 0
	}
	return bits
}
