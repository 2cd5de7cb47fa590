// Package sim provides in-memory pins and a manual clock for hosted runs.
//
// A [Line] models one wire with a pull-up resistor and two sides: the
// controller side is the [gpio.Pin] handed to the protocol engines, and
// the peripheral side belongs to a device model or test. The wire reads
// low when either side drives it low, matching the open-collector
// electrical model of the PS/2 bus.
//
// Nothing here sleeps or schedules: time exists only as a [Clock] counter
// that tests and demos advance explicitly, so every timing scenario is
// deterministic.
package sim

import (
	"sync"

	"github.com/ardnew/softhid/gpio"
)

// Clock is a manually advanced microsecond counter.
type Clock struct {
	mu  sync.Mutex
	now uint32
}

var _ gpio.Clock = (*Clock)(nil)

// Micros returns the current counter value.
func (c *Clock) Micros() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the counter forward by us microseconds. The counter
// wraps at 32 bits like a free-running hardware timer.
func (c *Clock) Advance(us uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += us
}

// Line models one open-collector wire.
type Line struct {
	mu       sync.Mutex
	name     string
	mode     gpio.Mode
	out      gpio.Level
	periph   gpio.Level
	last     gpio.Level
	watchers []func()
}

var (
	_ gpio.Pin          = (*Line)(nil)
	_ gpio.EdgeNotifier = (*Line)(nil)
)

// NewLine creates a released line pulled up to high on both sides.
func NewLine(name string) *Line {
	return &Line{
		name:   name,
		mode:   gpio.ModeInputPullup,
		out:    gpio.High,
		periph: gpio.High,
		last:   gpio.High,
	}
}

// Name returns the label the line was created with.
func (l *Line) Name() string { return l.name }

// level computes the effective wire level. Callers hold l.mu.
func (l *Line) level() gpio.Level {
	ctrl := gpio.High
	if l.mode == gpio.ModeOutput {
		ctrl = l.out
	}
	return ctrl && l.periph
}

// update applies a mutation, firing edge watchers when a
// peripheral-driven change moves the effective level. Controller-side
// reconfiguration never recurses into the controller's own callback,
// mirroring a platform that masks its pin-change interrupt while
// reconfiguring a pin. Watchers run without the line lock held so they
// may read this or other lines.
func (l *Line) update(mutate func(), fromPeripheral bool) {
	l.mu.Lock()
	mutate()
	lvl := l.level()
	var fire []func()
	if lvl != l.last {
		l.last = lvl
		if fromPeripheral {
			fire = append(fire, l.watchers...)
		}
	}
	l.mu.Unlock()
	for _, fn := range fire {
		fn()
	}
}

// Read samples the effective wire level.
func (l *Line) Read() gpio.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level()
}

// Write sets the controller output latch.
func (l *Line) Write(v gpio.Level) {
	l.update(func() { l.out = v }, false)
}

// SetMode reconfigures the controller side of the line.
func (l *Line) SetMode(m gpio.Mode) {
	l.update(func() { l.mode = m }, false)
}

// NotifyEdge registers fn to run on every peripheral-driven transition
// of the effective level.
func (l *Line) NotifyEdge(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watchers = append(l.watchers, fn)
}

// SetPeripheral drives the peripheral side of the line. High releases
// the line; low holds it down regardless of the controller side.
func (l *Line) SetPeripheral(v gpio.Level) {
	l.update(func() { l.periph = v }, true)
}

// ControllerHolds reports whether the controller side is driving the
// line low, as a peripheral would observe during bus inhibit.
func (l *Line) ControllerHolds() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode == gpio.ModeOutput && l.out == gpio.Low
}

// JoystickLines is the pin complement of one DB-9 joystick port.
type JoystickLines struct {
	Up     *Line
	Down   *Line
	Left   *Line
	Right  *Line
	AB     *Line
	StartC *Line
	Select *Line
}

func newJoystickLines(prefix string) JoystickLines {
	return JoystickLines{
		Up:     NewLine(prefix + "-up"),
		Down:   NewLine(prefix + "-down"),
		Left:   NewLine(prefix + "-left"),
		Right:  NewLine(prefix + "-right"),
		AB:     NewLine(prefix + "-ab"),
		StartC: NewLine(prefix + "-startc"),
		Select: NewLine(prefix + "-select"),
	}
}

// Board bundles the full pin complement of the reference bridge wiring
// for hosted demos and tests.
type Board struct {
	Clock *Clock

	KeyboardClock *Line
	KeyboardData  *Line
	MouseClock    *Line
	MouseData     *Line

	Joy1 JoystickLines
	Joy2 JoystickLines

	PowerButton *Line
	ResetButton *Line

	PowerLED *Line
	DiskLED  *Line
}

// NewBoard creates a board with every line released.
func NewBoard() *Board {
	return &Board{
		Clock:         new(Clock),
		KeyboardClock: NewLine("kb-clk"),
		KeyboardData:  NewLine("kb-dat"),
		MouseClock:    NewLine("ms-clk"),
		MouseData:     NewLine("ms-dat"),
		Joy1:          newJoystickLines("joy1"),
		Joy2:          newJoystickLines("joy2"),
		PowerButton:   NewLine("btn-power"),
		ResetButton:   NewLine("btn-reset"),
		PowerLED:      NewLine("led-power"),
		DiskLED:       NewLine("led-disk"),
	}
}
