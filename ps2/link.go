package ps2

import (
	"fmt"
	"sync"

	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/pkg"
)

// State identifies the top-level condition of a link.
type State uint8

// Link states.
const (
	StateIdle        State = iota // No word in flight
	StateReadingWord              // Device is clocking a word in
	StateWritingWord              // Host write handshake in progress
	StateBufferFull               // Inbound ring full, clock held low
	StateDisabled                 // Caller forced the link off the bus
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReadingWord:
		return "reading"
	case StateWritingWord:
		return "writing"
	case StateBufferFull:
		return "buffer-full"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// WriteState identifies the step of the host-to-device handshake while
// the link is in StateWritingWord.
type WriteState uint8

// Transmit handshake steps.
const (
	WriteStateHoldingClock      WriteState = iota // Clock held low for the request-to-send hold
	WriteStateWaitClockLow                        // Awaiting device clock pull to present a bit
	WriteStateWaitClockHigh                       // Awaiting device clock release after it latched a bit
	WriteStateWaitDataLow                         // Data and parity out, awaiting device ACK pull
	WriteStateWaitFinalClockLow                   // ACK seen, awaiting the final clock pull
	WriteStateWaitForRelease                      // Awaiting both lines returning high
)

// String returns a human-readable write sub-state name.
func (ws WriteState) String() string {
	switch ws {
	case WriteStateHoldingClock:
		return "holding-clock"
	case WriteStateWaitClockLow:
		return "wait-clock-low"
	case WriteStateWaitClockHigh:
		return "wait-clock-high"
	case WriteStateWaitDataLow:
		return "wait-data-low"
	case WriteStateWaitFinalClockLow:
		return "wait-final-clock-low"
	case WriteStateWaitForRelease:
		return "wait-for-release"
	default:
		return "unknown"
	}
}

// Default timing values in microseconds.
const (
	DefaultHoldMicros        = 150  // Request-to-send clock hold (protocol floor is 100)
	DefaultAckTimeoutMicros  = 1500 // Budget per device action during a write
	DefaultReadTimeoutMicros = 250  // Budget between clock edges of a received frame
)

// maxTimeoutMicros bounds every configured budget to stay well under
// half the 16-bit counter rollover, keeping signed-delta comparison
// unambiguous.
const maxTimeoutMicros = 32000

// Config carries the tunable timing of a link, all in microseconds.
// Zero fields select the defaults.
type Config struct {
	// HoldMicros is how long the clock line is held low to request a
	// host-to-device transmission.
	HoldMicros uint16

	// AckTimeoutMicros bounds each step of the transmit handshake spent
	// waiting on the device.
	AckTimeoutMicros uint16

	// ReadTimeoutMicros bounds the gap between clock edges of a frame
	// being received before the partial frame is abandoned.
	ReadTimeoutMicros uint16
}

func (c Config) withDefaults() Config {
	if c.HoldMicros == 0 {
		c.HoldMicros = DefaultHoldMicros
	}
	if c.AckTimeoutMicros == 0 {
		c.AckTimeoutMicros = DefaultAckTimeoutMicros
	}
	if c.ReadTimeoutMicros == 0 {
		c.ReadTimeoutMicros = DefaultReadTimeoutMicros
	}
	return c
}

func (c Config) validate() error {
	for _, v := range [...]uint16{c.HoldMicros, c.AckTimeoutMicros, c.ReadTimeoutMicros} {
		if v >= maxTimeoutMicros {
			return fmt.Errorf("timeout %dus exceeds %dus: %w", v, maxTimeoutMicros, pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// Pins names the two wires of a PS/2 port.
type Pins struct {
	Clock gpio.Pin
	Data  gpio.Pin
}

// Stats counts link events for diagnostics. Snapshot via [Link.Stats].
type Stats struct {
	BytesReceived    uint32 // Validated words pushed to the inbound ring
	BytesSent        uint32 // Writes acknowledged by the device
	FramingErrors    uint32 // Words failing start/stop/parity validation
	ReadTimeouts     uint32 // Partial frames abandoned for lack of edges
	WriteTimeouts    uint32 // Writes abandoned waiting on the device
	SpuriousEdges    uint32 // Edges observed while inhibited or disabled
	BufferFullEvents uint32 // Transitions into StateBufferFull
	BytesDropped     uint32 // Validated words lost to a full inbound ring
}

// Link is the bit-level engine for one PS/2 port.
//
// Construct with [NewLink]; attach [Link.OnEdge] to the clock line's
// edge callback; call [Link.Poll] from the main loop. See the package
// documentation for the execution model.
type Link struct {
	mu    sync.Mutex
	name  string
	pins  Pins
	clock gpio.Clock
	cfg   Config

	state      State
	writeState WriteState
	lastClock  gpio.Level
	word       uint16
	mask       uint16

	deadline  uint16
	armed     bool
	holdTimer bool // deadline is our own hold delay, not a device budget

	in    ring
	out   ring
	stats Stats
}

// NewLink binds a PS/2 port to its pins and microsecond clock and
// releases both lines. It does not attach an edge callback; the
// platform (or an orchestrator) must route clock-line transitions to
// [Link.OnEdge] itself.
func NewLink(name string, pins Pins, clock gpio.Clock, cfg Config) (*Link, error) {
	if pins.Clock == nil || pins.Data == nil || clock == nil {
		return nil, fmt.Errorf("ps2: link %q: nil pin or clock: %w", name, pkg.ErrInvalidParameter)
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ps2: link %q: %w", name, err)
	}

	l := &Link{
		name:      name,
		pins:      pins,
		clock:     clock,
		cfg:       cfg,
		state:     StateIdle,
		lastClock: gpio.High,
		mask:      1,
	}
	gpio.Release(pins.Clock)
	gpio.Release(pins.Data)
	l.syncClock()

	pkg.LogDebug(pkg.ComponentPS2, "link created", "link", name,
		"hold_us", cfg.HoldMicros, "ack_us", cfg.AckTimeoutMicros, "read_us", cfg.ReadTimeoutMicros)
	return l, nil
}

// Name returns the label given at construction.
func (l *Link) Name() string { return l.name }

// State returns the link's top-level state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// WriteState returns the transmit handshake step.
func (l *Link) WriteState() WriteState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeState
}

// IsActive reports whether a word is in flight in either direction.
func (l *Link) IsActive() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateReadingWord || l.state == StateWritingWord
}

// Stats returns a snapshot of the diagnostic counters.
func (l *Link) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// Buffered returns the number of bytes queued in the inbound and
// outbound rings.
func (l *Link) Buffered() (in, out int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.in.len(), l.out.len()
}

// WriteBuffer queues data for transmission to the device. The whole
// batch is rejected with [pkg.ErrBufferFull] when it does not fit in
// the free space of the outbound ring, so a caller never observes a
// partial enqueue. A disabled link rejects writes with
// [pkg.ErrLinkDisabled] since nothing would drain them.
func (l *Link) WriteBuffer(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDisabled {
		return fmt.Errorf("ps2: link %q: %w", l.name, pkg.ErrLinkDisabled)
	}
	if len(data) > l.out.free() {
		pkg.LogDebug(pkg.ComponentPS2, "write rejected", "link", l.name,
			"len", len(data), "free", l.out.free())
		return fmt.Errorf("ps2: link %q: %w", l.name, pkg.ErrBufferFull)
	}
	for _, b := range data {
		l.out.push(b)
	}
	return nil
}

// ReadBuffer pops one received byte; ok is false when the inbound ring
// is empty. Draining a byte while the link is inhibiting the bus in
// StateBufferFull releases the clock and resumes reception.
func (l *Link) ReadBuffer() (b byte, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok = l.in.pop()
	if ok && l.state == StateBufferFull {
		l.enableLocked()
	}
	return b, ok
}

// Disable forces the link off the bus: the clock line is held low so
// the device cannot transmit, and any partial frame is discarded.
// Queued ring contents survive.
func (l *Link) Disable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	gpio.DriveLow(l.pins.Clock)
	l.syncClock()
	l.state = StateDisabled
	l.word = 0
	l.mask = 1
	l.armed = false
	pkg.LogDebug(pkg.ComponentPS2, "link disabled", "link", l.name)
}

// Enable releases both lines and returns the link to StateIdle. It is
// the recovery path from StateDisabled and discards partial frame
// state; ring contents survive.
func (l *Link) Enable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enableLocked()
	pkg.LogDebug(pkg.ComponentPS2, "link enabled", "link", l.name)
}

// enableLocked releases the bus and resets to StateIdle. Callers hold l.mu.
func (l *Link) enableLocked() {
	gpio.Release(l.pins.Clock)
	gpio.Release(l.pins.Data)
	l.syncClock()
	l.state = StateIdle
	l.writeState = WriteStateHoldingClock
	l.word = 0
	l.mask = 1
	l.armed = false
}

// syncClock refreshes the remembered clock level after the link itself
// reconfigures the clock pin. Self-caused transitions do not arrive
// through the edge callback, so the edge detector must not treat the
// next device-driven transition as a continuation of a stale level.
// Callers hold l.mu.
func (l *Link) syncClock() {
	l.lastClock = l.pins.Clock.Read()
}

// OnEdge services a transition of the clock line. The platform must
// route its clock-line edge callback here. Spurious invocations with
// no actual level change are tolerated, as with a shared pin-change
// interrupt.
func (l *Link) OnEdge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isEdge() {
		return
	}
	now := uint16(l.clock.Micros())
	switch l.state {
	case StateIdle:
		l.edgeIdle(now)
	case StateBufferFull, StateDisabled:
		// The clock is held low; the device should not be talking.
		l.stats.SpuriousEdges++
	case StateWritingWord:
		l.advanceWrite(now)
	case StateReadingWord:
		l.edgeReading(now)
	}
}

// isEdge samples the clock pin and reports whether its level changed
// since the last sample. Callers hold l.mu.
func (l *Link) isEdge() bool {
	lvl := l.pins.Clock.Read()
	changed := lvl != l.lastClock
	l.lastClock = lvl
	return changed
}

// Poll runs the time-driven half of the engine: it starts pending
// transmissions from StateIdle and enforces every timeout. Call it
// from the main loop as often as possible.
func (l *Link) Poll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := uint16(l.clock.Micros())
	switch l.state {
	case StateIdle:
		l.pollIdle(now)
	case StateBufferFull, StateDisabled:
		// Parked until ReadBuffer or Enable releases the clock.
	case StateWritingWord:
		l.pollWriting(now)
	case StateReadingWord:
		l.pollReading(now)
	}
}

// edgeIdle handles a clock transition while idle: a falling edge is
// the device clocking out a start bit, which is sampled as bit 0 of
// the new word.
func (l *Link) edgeIdle(now uint16) {
	if l.lastClock != gpio.Low {
		return
	}
	l.word = 0
	l.mask = 1
	if l.pins.Data.Read() == gpio.High {
		// A high start bit is already a framing violation; keep
		// accumulating and let validation reject the word.
		l.word |= l.mask
	}
	l.mask <<= 1
	l.state = StateReadingWord
	l.armDevice(now, l.cfg.ReadTimeoutMicros)
}

// edgeReading samples one bit per falling edge until the 11-bit word
// is complete.
func (l *Link) edgeReading(now uint16) {
	if l.lastClock != gpio.Low {
		return
	}
	if l.pins.Data.Read() == gpio.High {
		l.word |= l.mask
	}
	l.mask <<= 1
	if l.mask == incomingDone {
		l.finishWord()
		return
	}
	l.armDevice(now, l.cfg.ReadTimeoutMicros)
}

// finishWord validates the accumulated word, queues the decoded byte,
// and applies backpressure when the inbound ring fills. Callers hold
// l.mu.
func (l *Link) finishWord() {
	b, ok := ValidateWord(l.word)
	l.word = 0
	l.mask = 1
	l.state = StateIdle
	l.armed = false
	if !ok {
		// No retransmission request exists at this layer; drop it.
		l.stats.FramingErrors++
		return
	}
	l.stats.BytesReceived++
	if !l.in.push(b) {
		l.stats.BytesDropped++
		l.inhibit()
		return
	}
	if l.in.full() {
		l.inhibit()
	}
}

// inhibit holds the clock low and parks in StateBufferFull until a
// consumer drains a byte. Callers hold l.mu.
func (l *Link) inhibit() {
	gpio.DriveLow(l.pins.Clock)
	l.syncClock()
	l.state = StateBufferFull
	l.stats.BufferFullEvents++
}

// advanceWrite advances the host-to-device handshake. Each step
// consumes one level phase of the device-driven clock, so it is safe
// to run from both the edge callback and the poll loop: a step that
// already consumed the current phase blocks until the device moves on.
// Callers hold l.mu.
func (l *Link) advanceWrite(now uint16) {
	switch l.writeState {
	case WriteStateHoldingClock:
		// Our own clock pull lands here; Poll owns the hold timer.
	case WriteStateWaitClockLow:
		if l.pins.Clock.Read() != gpio.Low {
			return
		}
		if l.mask == outgoingDone {
			// Data and parity are out. Releasing the line sends the
			// stop bit; the device answers with an ACK pull.
			gpio.Release(l.pins.Data)
			l.writeState = WriteStateWaitDataLow
		} else {
			if l.word&l.mask != 0 {
				l.pins.Data.Write(gpio.High)
			} else {
				l.pins.Data.Write(gpio.Low)
			}
			l.mask <<= 1
			l.writeState = WriteStateWaitClockHigh
		}
		l.armDevice(now, l.cfg.AckTimeoutMicros)
	case WriteStateWaitClockHigh:
		if l.pins.Clock.Read() != gpio.High {
			return
		}
		l.writeState = WriteStateWaitClockLow
		l.armDevice(now, l.cfg.AckTimeoutMicros)
	case WriteStateWaitDataLow:
		if l.pins.Data.Read() != gpio.Low {
			return
		}
		l.writeState = WriteStateWaitFinalClockLow
		l.armDevice(now, l.cfg.AckTimeoutMicros)
	case WriteStateWaitFinalClockLow:
		if l.pins.Clock.Read() != gpio.Low {
			return
		}
		l.writeState = WriteStateWaitForRelease
		l.armDevice(now, l.cfg.AckTimeoutMicros)
	case WriteStateWaitForRelease:
		if l.pins.Clock.Read() == gpio.High && l.pins.Data.Read() == gpio.High {
			l.out.pop()
			l.stats.BytesSent++
			l.enableLocked()
		}
	}
}

// pollIdle starts a transmission when the outbound ring has work. The
// byte stays at the head of the ring until the device acknowledges it.
func (l *Link) pollIdle(now uint16) {
	b, ok := l.out.peek()
	if !ok {
		return
	}
	l.state = StateWritingWord
	l.writeState = WriteStateHoldingClock
	l.word = EncodeByte(b)
	// The start bit is not clocked: pulling data low during the hold
	// transmits it. Bit 1 is the first bit the device clocks in.
	l.mask = 1 << firstDataBit
	gpio.DriveLow(l.pins.Clock)
	l.syncClock()
	l.armHold(now, l.cfg.HoldMicros)
}

// pollWriting advances the hold timer, abandons a write whose device
// budget expired, and otherwise makes level-driven progress on the
// handshake for platforms that deliver no edge callback.
func (l *Link) pollWriting(now uint16) {
	if l.expired(now) {
		if l.holdTimer {
			// Hold complete: pull data low (the start bit), then hand
			// the clock to the device for the remaining bits.
			gpio.DriveLow(l.pins.Data)
			gpio.Release(l.pins.Clock)
			l.syncClock()
			l.writeState = WriteStateWaitClockLow
			l.armDevice(now, l.cfg.AckTimeoutMicros)
			return
		}
		// The device stopped answering mid-write. Drop the byte rather
		// than retry: retry policy belongs to the caller.
		pkg.LogDebug(pkg.ComponentPS2, "transmit timeout", "link", l.name,
			"write_state", l.writeState.String())
		l.out.pop()
		l.stats.WriteTimeouts++
		l.enableLocked()
		return
	}
	if !l.holdTimer {
		l.advanceWrite(now)
	}
}

// pollReading abandons a partial frame whose inter-edge budget expired.
func (l *Link) pollReading(now uint16) {
	if !l.expired(now) {
		return
	}
	pkg.LogDebug(pkg.ComponentPS2, "receive timeout", "link", l.name)
	l.word = 0
	l.mask = 1
	l.state = StateIdle
	l.stats.ReadTimeouts++
}

// armHold starts the link's own delay timer. Callers hold l.mu.
func (l *Link) armHold(now, budget uint16) {
	l.deadline = now + budget
	l.armed = true
	l.holdTimer = true
}

// armDevice starts a budget for the device's next action. Callers hold
// l.mu.
func (l *Link) armDevice(now, budget uint16) {
	l.deadline = now + budget
	l.armed = true
	l.holdTimer = false
}

// expired reports whether the armed deadline has passed, disarming it
// when so. The signed-delta comparison is wraparound-safe at 16 bits.
func (l *Link) expired(now uint16) bool {
	if !l.armed {
		return false
	}
	if int16(l.deadline-now) <= 0 {
		l.armed = false
		return true
	}
	return false
}
