// Package ps2sim models a scripted PS/2 peripheral for hosted runs.
//
// A [Device] attaches to the peripheral side of two [sim.Line]s and is
// driven by polling: call [Device.Tick] with the current microsecond
// count as the simulated clock advances. The device clocks queued
// bytes out to the controller, honors bus inhibits with
// retransmission, decodes controller writes, and scripts replies via
// [Responder].
//
// Interleave Tick with the controller's Poll at a step no coarser than
// a quarter bit period, or the controller misses the level windows of
// the write handshake:
//
//	for !dev.Idle() {
//		clock.Advance(10)
//		dev.Tick(clock.Micros())
//		link.Poll()
//	}
package ps2sim

import (
	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/gpio/sim"
	"github.com/ardnew/softhid/ps2"
)

// Responder scripts the device's reply to each byte the controller
// writes. The returned bytes are queued for transmission.
type Responder func(b byte) []byte

// DefaultBitPeriodMicros is the model's clock period, a 10 kHz bus.
const DefaultBitPeriodMicros = 100

// Config carries device model parameters.
type Config struct {
	// BitPeriodMicros is the full clock period per transmitted bit.
	// Real devices run a 60 to 100 microsecond period. Zero selects
	// DefaultBitPeriodMicros.
	BitPeriodMicros uint32

	// Responder, when non-nil, scripts replies to controller writes.
	Responder Responder
}

func (c Config) withDefaults() Config {
	if c.BitPeriodMicros == 0 {
		c.BitPeriodMicros = DefaultBitPeriodMicros
	}
	return c
}

type devState uint8

const (
	devIdle devState = iota
	devSending
	devReceiving
)

// Device is a scripted PS/2 peripheral. It is not safe for concurrent
// use: hosted runs drive Tick and the accessors from the same
// goroutine that advances the simulated clock.
type Device struct {
	clk *sim.Line
	dat *sim.Line
	cfg Config

	state     devState
	queue     []byte
	word      uint16
	bit       uint
	phase     uint8
	nextAt    uint32
	waiting   bool
	heldSeen  bool
	received  []byte
	badWrites int
}

// NewDevice attaches a device model to the peripheral side of a clock
// and data line.
func NewDevice(clk, dat *sim.Line, cfg Config) *Device {
	return &Device{clk: clk, dat: dat, cfg: cfg.withDefaults()}
}

// Send queues bytes for transmission to the controller.
func (d *Device) Send(data ...byte) {
	d.queue = append(d.queue, data...)
}

// Received returns a copy of every byte decoded from controller writes.
func (d *Device) Received() []byte {
	return append([]byte(nil), d.received...)
}

// Pending returns the number of bytes waiting to clock out.
func (d *Device) Pending() int { return len(d.queue) }

// Idle reports whether nothing is in flight and nothing is queued.
func (d *Device) Idle() bool { return d.state == devIdle && len(d.queue) == 0 }

// BadWrites returns the count of controller writes that failed
// validation.
func (d *Device) BadWrites() int { return d.badWrites }

// Tick runs the device model at the given microsecond count.
func (d *Device) Tick(now uint32) {
	switch d.state {
	case devIdle:
		d.tickIdle(now)
	case devSending:
		d.tickSending(now)
	case devReceiving:
		d.tickReceiving(now)
	}
}

func (d *Device) setup() uint32 { return d.cfg.BitPeriodMicros / 5 }

func (d *Device) lowHalf() uint32 { return d.cfg.BitPeriodMicros * 2 / 5 }

func (d *Device) highHalf() uint32 { return d.cfg.BitPeriodMicros - d.setup() - d.lowHalf() }

func (d *Device) schedule(now, delay uint32) {
	d.nextAt = now + delay
	d.waiting = true
}

func (d *Device) due(now uint32) bool {
	return d.waiting && int32(now-d.nextAt) >= 0
}

func (d *Device) tickIdle(now uint32) {
	if d.clk.ControllerHolds() {
		// Inhibited. A data pull when the hold lifts is the
		// controller's request-to-send.
		d.heldSeen = true
		return
	}
	if d.heldSeen {
		d.heldSeen = false
		if d.dat.Read() == gpio.Low {
			d.state = devReceiving
			d.word = 0
			d.bit = 1
			d.phase = 0
			d.schedule(now, d.setup())
			return
		}
		// Plain inhibit released with no write request.
	}
	if len(d.queue) > 0 && d.clk.Read() == gpio.High && d.dat.Read() == gpio.High {
		d.state = devSending
		d.word = ps2.EncodeByte(d.queue[0])
		d.bit = 0
		d.phase = 0
		d.schedule(now, d.setup())
	}
}

func (d *Device) tickSending(now uint32) {
	if d.clk.ControllerHolds() {
		// Inhibited. Release the bus; a frame whose stop bit was not
		// yet sampled stays queued and is retransmitted after the
		// inhibit lifts.
		d.clk.SetPeripheral(gpio.High)
		d.dat.SetPeripheral(gpio.High)
		d.state = devIdle
		d.waiting = false
		return
	}
	if !d.due(now) {
		return
	}
	switch d.phase {
	case 0: // present the bit before the falling edge
		d.dat.SetPeripheral(gpio.Level(d.word&(1<<d.bit) != 0))
		d.phase = 1
		d.schedule(now, d.setup())
	case 1: // falling edge: controller samples
		d.clk.SetPeripheral(gpio.Low)
		if d.bit == 10 {
			// The stop bit has been sampled: the frame is committed
			// and must not be retransmitted after an inhibit.
			d.queue = d.queue[1:]
		}
		d.phase = 2
		d.schedule(now, d.lowHalf())
	case 2: // rising edge: bit done
		d.clk.SetPeripheral(gpio.High)
		if d.bit == 10 {
			d.dat.SetPeripheral(gpio.High)
			d.state = devIdle
			d.waiting = false
			return
		}
		d.bit++
		d.phase = 0
		d.schedule(now, d.highHalf())
	}
}

func (d *Device) tickReceiving(now uint32) {
	if !d.due(now) {
		return
	}
	switch d.phase {
	case 0: // falling edge: controller presents the next bit
		d.clk.SetPeripheral(gpio.Low)
		d.phase = 1
		d.schedule(now, d.lowHalf())
	case 1: // sample, then rising edge
		if d.dat.Read() == gpio.High {
			d.word |= 1 << d.bit
		}
		d.clk.SetPeripheral(gpio.High)
		d.bit++
		if d.bit > 10 {
			d.phase = 2
			d.schedule(now, d.setup())
			return
		}
		d.phase = 0
		d.schedule(now, d.highHalf())
	case 2: // acknowledge: pull data low
		d.dat.SetPeripheral(gpio.Low)
		d.phase = 3
		d.schedule(now, d.setup())
	case 3:
		d.clk.SetPeripheral(gpio.Low)
		d.phase = 4
		d.schedule(now, d.lowHalf())
	case 4:
		d.clk.SetPeripheral(gpio.High)
		d.phase = 5
		d.schedule(now, d.setup())
	case 5: // release data: write complete
		d.dat.SetPeripheral(gpio.High)
		d.finishWrite()
		d.state = devIdle
		d.waiting = false
	}
}

func (d *Device) finishWrite() {
	b, ok := ps2.ValidateWord(d.word)
	if !ok {
		d.badWrites++
		return
	}
	d.received = append(d.received, b)
	if d.cfg.Responder != nil {
		d.queue = append(d.queue, d.cfg.Responder(b)...)
	}
}
