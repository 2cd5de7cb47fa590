package ps2

import (
	"errors"
	"testing"

	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/gpio/sim"
	"github.com/ardnew/softhid/pkg"
)

// testPort wires a Link to simulated lines and plays the device side of
// the bus by hand.
type testPort struct {
	t     *testing.T
	clk   *sim.Line
	dat   *sim.Line
	clock *sim.Clock
	link  *Link
}

func newTestPort(t *testing.T, cfg Config) *testPort {
	t.Helper()
	p := &testPort{
		t:     t,
		clk:   sim.NewLine("clk"),
		dat:   sim.NewLine("dat"),
		clock: new(sim.Clock),
	}
	link, err := NewLink("test", Pins{Clock: p.clk, Data: p.dat}, p.clock, cfg)
	if err != nil {
		t.Fatalf("NewLink() error = %v", err)
	}
	p.clk.NotifyEdge(link.OnEdge)
	p.link = link
	return p
}

// clockIn drives an 11-bit word into the link the way a device would:
// data set before each falling edge, one bit per clock cycle.
func (p *testPort) clockIn(word uint16) {
	for bit := 0; bit < 11; bit++ {
		p.dat.SetPeripheral(gpio.Level(word&(1<<bit) != 0))
		p.clock.Advance(20)
		p.clk.SetPeripheral(gpio.Low)
		p.clock.Advance(40)
		p.clk.SetPeripheral(gpio.High)
		p.clock.Advance(40)
	}
	p.dat.SetPeripheral(gpio.High)
}

func (p *testPort) sendByte(b byte) { p.clockIn(EncodeByte(b)) }

// serveWrite plays the device side of one host-to-device write and
// returns the byte it decoded off the wire.
func (p *testPort) serveWrite() byte {
	p.t.Helper()

	p.link.Poll() // pick up the queued byte; clock hold begins
	if got := p.link.State(); got != StateWritingWord {
		p.t.Fatalf("State() = %v, want %v", got, StateWritingWord)
	}
	if !p.clk.ControllerHolds() {
		p.t.Fatal("clock not held low for request-to-send")
	}

	p.clock.Advance(DefaultHoldMicros + 10)
	p.link.Poll() // hold expired: data low, clock handed to the device
	if p.dat.Read() != gpio.Low {
		p.t.Fatal("data line not low after the hold")
	}
	if p.clk.ControllerHolds() {
		p.t.Fatal("clock still held after the hold")
	}

	// Clock in the eight data bits and the parity bit. The link
	// presents each bit on the falling edge.
	var word uint16
	for bit := 1; bit <= 9; bit++ {
		p.clock.Advance(40)
		p.clk.SetPeripheral(gpio.Low)
		if p.dat.Read() == gpio.High {
			word |= 1 << bit
		}
		p.clock.Advance(40)
		p.clk.SetPeripheral(gpio.High)
	}

	// Stop bit: the link releases the data line on this falling edge.
	p.clock.Advance(40)
	p.clk.SetPeripheral(gpio.Low)
	if p.dat.Read() != gpio.High {
		p.t.Fatal("stop bit not high")
	}
	word |= 1 << stopBit
	p.clock.Advance(40)
	p.clk.SetPeripheral(gpio.High)

	// Acknowledge: pull data low, pulse the clock once, release both.
	p.dat.SetPeripheral(gpio.Low)
	p.clock.Advance(20)
	p.clk.SetPeripheral(gpio.Low)
	p.link.Poll()
	p.clock.Advance(40)
	p.clk.SetPeripheral(gpio.High)
	p.dat.SetPeripheral(gpio.High)
	p.link.Poll()

	if got := p.link.State(); got != StateIdle {
		p.t.Fatalf("State() after write = %v, want %v", got, StateIdle)
	}
	b, ok := ValidateWord(word)
	if !ok {
		p.t.Fatalf("link transmitted invalid word %#04x", word)
	}
	return b
}

func TestNewLink(t *testing.T) {
	clk := sim.NewLine("clk")
	dat := sim.NewLine("dat")
	clock := new(sim.Clock)

	if _, err := NewLink("a", Pins{Clock: clk}, clock, Config{}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewLink with nil data pin: error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
	if _, err := NewLink("b", Pins{Clock: clk, Data: dat}, nil, Config{}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewLink with nil clock: error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
	if _, err := NewLink("c", Pins{Clock: clk, Data: dat}, clock, Config{HoldMicros: 40000}); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("NewLink with oversized timeout: error = %v, want %v", err, pkg.ErrInvalidParameter)
	}

	l, err := NewLink("d", Pins{Clock: clk, Data: dat}, clock, Config{})
	if err != nil {
		t.Fatalf("NewLink() error = %v", err)
	}
	if got := l.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if clk.ControllerHolds() || dat.ControllerHolds() {
		t.Error("lines not released after construction")
	}
}

func TestLink_Receive(t *testing.T) {
	p := newTestPort(t, Config{})
	want := []byte{0x00, 0x01, 0x03, 0x55, 0xAA, 0xF0, 0xFF}

	for _, b := range want {
		p.sendByte(b)
		p.link.Poll()
	}

	if in, _ := p.link.Buffered(); in != len(want) {
		t.Fatalf("Buffered() in = %d, want %d", in, len(want))
	}
	for i, w := range want {
		b, ok := p.link.ReadBuffer()
		if !ok {
			t.Fatalf("ReadBuffer() %d: no byte", i)
		}
		if b != w {
			t.Errorf("ReadBuffer() %d = %#02x, want %#02x", i, b, w)
		}
	}
	if _, ok := p.link.ReadBuffer(); ok {
		t.Error("ReadBuffer() returned a byte from an empty ring")
	}
	if got := p.link.Stats().BytesReceived; got != uint32(len(want)) {
		t.Errorf("Stats().BytesReceived = %d, want %d", got, len(want))
	}
	if p.link.IsActive() {
		t.Error("IsActive() = true with no word in flight")
	}
}

func TestLink_ReceiveFramingError(t *testing.T) {
	p := newTestPort(t, Config{})

	p.clockIn(EncodeByte(0x55) ^ (1 << parityBit))

	if in, _ := p.link.Buffered(); in != 0 {
		t.Errorf("Buffered() in = %d after invalid frame, want 0", in)
	}
	if got := p.link.Stats().FramingErrors; got != 1 {
		t.Errorf("Stats().FramingErrors = %d, want 1", got)
	}
	if got := p.link.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}

	// A corrupt word must not poison the next frame.
	p.sendByte(0x77)
	b, ok := p.link.ReadBuffer()
	if !ok || b != 0x77 {
		t.Errorf("ReadBuffer() after framing error = %#02x, %v, want 0x77, true", b, ok)
	}
}

func TestLink_ReceiveTimeout(t *testing.T) {
	p := newTestPort(t, Config{})

	// Three bits of a frame, then the device goes quiet.
	word := EncodeByte(0xAA)
	for bit := 0; bit < 3; bit++ {
		p.dat.SetPeripheral(gpio.Level(word&(1<<bit) != 0))
		p.clock.Advance(20)
		p.clk.SetPeripheral(gpio.Low)
		p.clock.Advance(40)
		p.clk.SetPeripheral(gpio.High)
		p.clock.Advance(40)
	}
	p.dat.SetPeripheral(gpio.High)
	if got := p.link.State(); got != StateReadingWord {
		t.Fatalf("State() = %v, want %v", got, StateReadingWord)
	}

	p.clock.Advance(uint32(DefaultReadTimeoutMicros) + 10)
	p.link.Poll()

	if got := p.link.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if got := p.link.Stats().ReadTimeouts; got != 1 {
		t.Errorf("Stats().ReadTimeouts = %d, want 1", got)
	}
	if p.link.word != 0 || p.link.mask != 1 {
		t.Errorf("accumulator not reset: word = %#04x, mask = %#04x", p.link.word, p.link.mask)
	}

	// The abandoned bits must not leak into the next frame.
	p.sendByte(0x42)
	b, ok := p.link.ReadBuffer()
	if !ok || b != 0x42 {
		t.Errorf("ReadBuffer() after timeout = %#02x, %v, want 0x42, true", b, ok)
	}
}

func TestLink_Backpressure(t *testing.T) {
	p := newTestPort(t, Config{})

	for i := 0; i < BufferSize; i++ {
		p.sendByte(byte(i))
	}

	if got := p.link.State(); got != StateBufferFull {
		t.Fatalf("State() = %v, want %v", got, StateBufferFull)
	}
	if !p.clk.ControllerHolds() {
		t.Fatal("clock not held low while buffer full")
	}

	// With the bus inhibited, further device traffic never reaches the
	// link.
	p.sendByte(0xEE)
	if got := p.link.Stats().BytesReceived; got != BufferSize {
		t.Errorf("Stats().BytesReceived = %d, want %d", got, BufferSize)
	}

	// Draining one byte releases the clock and resumes reception.
	b, ok := p.link.ReadBuffer()
	if !ok || b != 0x00 {
		t.Fatalf("ReadBuffer() = %#02x, %v, want 0x00, true", b, ok)
	}
	if got := p.link.State(); got != StateIdle {
		t.Errorf("State() after drain = %v, want %v", got, StateIdle)
	}
	if p.clk.ControllerHolds() {
		t.Error("clock still held after drain")
	}

	for i := 1; i < BufferSize; i++ {
		b, ok := p.link.ReadBuffer()
		if !ok || b != byte(i) {
			t.Fatalf("ReadBuffer() %d = %#02x, %v, want %#02x, true", i, b, ok, byte(i))
		}
	}
	if got := p.link.Stats().BufferFullEvents; got != 1 {
		t.Errorf("Stats().BufferFullEvents = %d, want 1", got)
	}
}

func TestLink_WriteBuffer(t *testing.T) {
	p := newTestPort(t, Config{})

	if err := p.link.WriteBuffer(make([]byte, BufferSize-2)); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}

	// A batch that does not fit is rejected whole.
	if err := p.link.WriteBuffer([]byte{1, 2, 3}); !errors.Is(err, pkg.ErrBufferFull) {
		t.Errorf("WriteBuffer() oversized batch: error = %v, want %v", err, pkg.ErrBufferFull)
	}
	if _, out := p.link.Buffered(); out != BufferSize-2 {
		t.Errorf("Buffered() out = %d after rejected batch, want %d", out, BufferSize-2)
	}

	if err := p.link.WriteBuffer([]byte{4, 5}); err != nil {
		t.Errorf("WriteBuffer() exact fit: error = %v", err)
	}
	if err := p.link.WriteBuffer([]byte{6}); !errors.Is(err, pkg.ErrBufferFull) {
		t.Errorf("WriteBuffer() on full ring: error = %v, want %v", err, pkg.ErrBufferFull)
	}
}

func TestLink_Transmit(t *testing.T) {
	p := newTestPort(t, Config{})

	if err := p.link.WriteBuffer([]byte{0xED}); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	if got := p.serveWrite(); got != 0xED {
		t.Errorf("transmitted byte = %#02x, want 0xed", got)
	}
	if got := p.link.Stats().BytesSent; got != 1 {
		t.Errorf("Stats().BytesSent = %d, want 1", got)
	}
	if _, out := p.link.Buffered(); out != 0 {
		t.Errorf("Buffered() out = %d after transmit, want 0", out)
	}
}

func TestLink_TransmitSequence(t *testing.T) {
	p := newTestPort(t, Config{})
	want := []byte{0xF3, 0x64, 0xF4}

	if err := p.link.WriteBuffer(want); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	for i, w := range want {
		if got := p.serveWrite(); got != w {
			t.Errorf("byte %d = %#02x, want %#02x", i, got, w)
		}
	}
	if got := p.link.Stats().BytesSent; got != uint32(len(want)) {
		t.Errorf("Stats().BytesSent = %d, want %d", got, len(want))
	}
}

func TestLink_TransmitTimeout(t *testing.T) {
	p := newTestPort(t, Config{})

	if err := p.link.WriteBuffer([]byte{0xF4}); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	p.link.Poll()
	p.clock.Advance(DefaultHoldMicros + 10)
	p.link.Poll()
	if got := p.link.WriteState(); got != WriteStateWaitClockLow {
		t.Fatalf("WriteState() = %v, want %v", got, WriteStateWaitClockLow)
	}

	// Device never answers: the byte is dropped, not retried.
	p.clock.Advance(uint32(DefaultAckTimeoutMicros) + 10)
	p.link.Poll()

	if got := p.link.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if got := p.link.Stats().WriteTimeouts; got != 1 {
		t.Errorf("Stats().WriteTimeouts = %d, want 1", got)
	}
	if _, out := p.link.Buffered(); out != 0 {
		t.Errorf("Buffered() out = %d after abandoned write, want 0", out)
	}
	if p.clk.ControllerHolds() || p.dat.ControllerHolds() {
		t.Error("lines not released after abandoned write")
	}
}

func TestLink_DisableEnable(t *testing.T) {
	p := newTestPort(t, Config{})

	p.link.Disable()
	if got := p.link.State(); got != StateDisabled {
		t.Fatalf("State() = %v, want %v", got, StateDisabled)
	}
	if !p.clk.ControllerHolds() {
		t.Fatal("clock not held low while disabled")
	}
	if err := p.link.WriteBuffer([]byte{0xFF}); !errors.Is(err, pkg.ErrLinkDisabled) {
		t.Errorf("WriteBuffer() while disabled: error = %v, want %v", err, pkg.ErrLinkDisabled)
	}

	p.sendByte(0x12)
	if in, _ := p.link.Buffered(); in != 0 {
		t.Errorf("Buffered() in = %d while disabled, want 0", in)
	}

	p.link.Enable()
	if got := p.link.State(); got != StateIdle {
		t.Fatalf("State() = %v, want %v", got, StateIdle)
	}
	if p.clk.ControllerHolds() {
		t.Fatal("clock still held after enable")
	}

	p.sendByte(0x34)
	b, ok := p.link.ReadBuffer()
	if !ok || b != 0x34 {
		t.Errorf("ReadBuffer() after enable = %#02x, %v, want 0x34, true", b, ok)
	}
}

func TestLink_TimeoutWraparound(t *testing.T) {
	p := newTestPort(t, Config{})

	// Park the microsecond counter just below the 16-bit rollover so
	// the armed deadline lands past it.
	p.clock.Advance(65500)

	p.dat.SetPeripheral(gpio.Low)
	p.clock.Advance(20)
	p.clk.SetPeripheral(gpio.Low)
	if got := p.link.State(); got != StateReadingWord {
		t.Fatalf("State() = %v, want %v", got, StateReadingWord)
	}

	p.clock.Advance(uint32(DefaultReadTimeoutMicros) + 50)
	p.link.Poll()

	if got := p.link.State(); got != StateIdle {
		t.Errorf("State() = %v, want %v", got, StateIdle)
	}
	if got := p.link.Stats().ReadTimeouts; got != 1 {
		t.Errorf("Stats().ReadTimeouts = %d, want 1", got)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateReadingWord, "reading"},
		{StateWritingWord, "writing"},
		{StateBufferFull, "buffer-full"},
		{StateDisabled, "disabled"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestWriteState_String(t *testing.T) {
	tests := []struct {
		ws   WriteState
		want string
	}{
		{WriteStateHoldingClock, "holding-clock"},
		{WriteStateWaitClockLow, "wait-clock-low"},
		{WriteStateWaitClockHigh, "wait-clock-high"},
		{WriteStateWaitDataLow, "wait-data-low"},
		{WriteStateWaitFinalClockLow, "wait-final-clock-low"},
		{WriteStateWaitForRelease, "wait-for-release"},
		{WriteState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.ws.String(); got != tt.want {
			t.Errorf("WriteState(%d).String() = %q, want %q", tt.ws, got, tt.want)
		}
	}
}
