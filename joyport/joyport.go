// Package joyport reads 9-pin Atari and Sega joystick ports.
//
// Single-button Atari and Sega Master System sticks present their
// switches directly on the six input pins. Three-button Sega Mega
// Drive pads multiplex two signal sets over the same pins, switched by
// the Select output. A pad in its primary phase grounds both left and
// right, which no real stick can do; that signature tells the scanner
// to flip Select and sample the secondary set. Six-button pads are not
// supported and read as three-button pads.
//
// Ports are polled, not interrupt-driven, and are not safe for
// concurrent use: drive Scan, Read, and HasNew from one polling loop.
package joyport

import (
	"fmt"
	"strings"

	"github.com/ardnew/softhid/gpio"
	"github.com/ardnew/softhid/pkg"
)

// Reading is one snapshot of a port's buttons and directions, one bit
// per switch, set while pressed.
type Reading uint8

// Switch bits of a Reading.
const (
	Up Reading = 1 << iota
	Down
	Left
	Right
	ButtonA
	ButtonB
	ButtonC
	Start
)

// Fire is the single button of an Atari stick, wired to the same pin
// as a Mega Drive pad's A button.
const Fire = ButtonA

// Pressed reports whether any switch in mask is set.
func (r Reading) Pressed(mask Reading) bool { return r&mask != 0 }

var readingNames = []struct {
	bit  Reading
	name string
}{
	{Up, "up"},
	{Down, "down"},
	{Left, "left"},
	{Right, "right"},
	{ButtonA, "a"},
	{ButtonB, "b"},
	{ButtonC, "c"},
	{Start, "start"},
}

// String lists the pressed switches, or "none".
func (r Reading) String() string {
	if r == 0 {
		return "none"
	}
	var sb strings.Builder
	for _, n := range readingNames {
		if r&n.bit != 0 {
			if sb.Len() > 0 {
				sb.WriteByte('|')
			}
			sb.WriteString(n.name)
		}
	}
	return sb.String()
}

// Pins names the seven wires of a joystick port. The six inputs are
// active low. AB carries A while Select is low and B while it is high;
// StartC carries Start, then C.
type Pins struct {
	Up     gpio.Pin
	Down   gpio.Pin
	Left   gpio.Pin
	Right  gpio.Pin
	AB     gpio.Pin
	StartC gpio.Pin
	Select gpio.Pin
}

func (p Pins) validate() error {
	if p.Up == nil || p.Down == nil || p.Left == nil || p.Right == nil ||
		p.AB == nil || p.StartC == nil || p.Select == nil {
		return pkg.ErrInvalidParameter
	}
	return nil
}

// Port is one scannable joystick port.
type Port struct {
	name    string
	pins    Pins
	current Reading
	last    Reading
}

// NewPort binds a port to its pins: inputs pulled up, Select driven
// low.
func NewPort(name string, pins Pins) (*Port, error) {
	if err := pins.validate(); err != nil {
		return nil, fmt.Errorf("joyport: port %q: nil pin: %w", name, err)
	}
	for _, in := range [...]gpio.Pin{pins.Up, pins.Down, pins.Left, pins.Right, pins.AB, pins.StartC} {
		in.SetMode(gpio.ModeInputPullup)
	}
	pins.Select.Write(gpio.Low)
	pins.Select.SetMode(gpio.ModeOutput)

	pkg.LogDebug(pkg.ComponentJoystick, "port created", "port", name)
	return &Port{name: name, pins: pins}, nil
}

// Name returns the label given at construction.
func (p *Port) Name() string { return p.name }

// Scan samples the inputs and recomputes the pending reading, flipping
// Select for a second pass when the left+right signature of a Mega
// Drive pad shows up. It reports whether the pending reading differs
// from the last consumed one.
func (p *Port) Scan() bool {
	var r Reading
	if p.pins.Up.Read() == gpio.Low {
		r |= Up
	}
	if p.pins.Down.Read() == gpio.Low {
		r |= Down
	}
	if p.pins.Left.Read() == gpio.Low {
		r |= Left
	}
	if p.pins.Right.Read() == gpio.Low {
		r |= Right
	}
	if p.pins.AB.Read() == gpio.Low {
		r |= ButtonA
	}
	if p.pins.StartC.Read() == gpio.Low {
		r |= Start
	}
	if r.Pressed(Left) && r.Pressed(Right) {
		// No real stick grounds left and right together: a Mega Drive
		// pad does while Select is low. The A and Start bits sampled
		// above are real; left and right are not.
		p.pins.Select.Write(gpio.High)
		r &^= Left | Right
		if p.pins.Left.Read() == gpio.Low {
			r |= Left
		}
		if p.pins.Right.Read() == gpio.Low {
			r |= Right
		}
		if p.pins.AB.Read() == gpio.Low {
			r |= ButtonB
		}
		if p.pins.StartC.Read() == gpio.Low {
			r |= ButtonC
		}
		p.pins.Select.Write(gpio.Low)
	}
	p.current = r
	return p.HasNew()
}

// Read returns the pending reading and remembers it as consumed for
// the next HasNew comparison.
func (p *Port) Read() Reading {
	p.last = p.current
	return p.current
}

// HasNew reports whether the pending reading differs from the last
// consumed one.
func (p *Port) HasNew() bool { return p.current != p.last }
