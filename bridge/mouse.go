package bridge

import "github.com/ardnew/softhid/pkg"

// PS/2 mouse protocol constants.
const (
	mousePacketSize = 3

	// First-byte flags of a movement packet.
	mouseSync      = 1 << 3 // Always set; anchors resynchronization
	mouseSignX     = 1 << 4 // Ninth (sign) bit of the X delta
	mouseSignY     = 1 << 5 // Ninth (sign) bit of the Y delta
	mouseOverflowX = 1 << 6 // X delta exceeded the nine-bit range
	mouseOverflowY = 1 << 7 // Y delta exceeded the nine-bit range

	mouseButtonMask = 0x07

	// Command and response bytes.
	mouseEnableReporting = 0xF4
	mouseAck             = 0xFA
	mouseSelfTestPassed  = 0xAA
	mouseDeviceID        = 0x00
)

// MousePacket is one decoded movement packet. DX and DY are signed
// deltas in mouse coordinates, positive right and up.
type MousePacket struct {
	Buttons uint8
	DX      int8
	DY      int8
}

// MouseAssembler reassembles three-byte movement packets from the raw
// byte stream of a PS/2 mouse.
//
// The stream has no framing beyond the always-set sync bit of each
// packet's first byte, so a byte arriving between packets with that
// bit clear is dropped until a plausible packet boundary reappears.
// Protocol responses the mouse sends outside of packets, the
// acknowledge byte and reset chatter, are swallowed while an
// acknowledge is expected.
type MouseAssembler struct {
	buf        [mousePacketSize]byte
	n          int
	ackPending uint8
	dropped    uint32
}

// ExpectAck arms the assembler to consume one acknowledge byte before
// the next packet. Call it after queueing a command to the mouse.
func (a *MouseAssembler) ExpectAck() {
	a.ackPending++
}

// Feed consumes one byte from the mouse. It returns a decoded packet
// and true when the byte completes one.
func (a *MouseAssembler) Feed(b byte) (MousePacket, bool) {
	if a.n == 0 {
		if a.ackPending > 0 {
			switch b {
			case mouseAck:
				a.ackPending--
				return MousePacket{}, false
			case mouseSelfTestPassed, mouseDeviceID:
				// Reset chatter preceding the acknowledge.
				return MousePacket{}, false
			}
		}
		if b&mouseSync == 0 {
			a.dropped++
			pkg.LogDebug(pkg.ComponentBridge, "mouse byte outside packet", "byte", b)
			return MousePacket{}, false
		}
	}
	a.buf[a.n] = b
	a.n++
	if a.n < mousePacketSize {
		return MousePacket{}, false
	}
	a.n = 0
	return a.decode(), true
}

// Dropped returns how many bytes were discarded hunting for a packet
// boundary.
func (a *MouseAssembler) Dropped() uint32 {
	return a.dropped
}

// Reset discards any partially assembled packet and pending
// acknowledge.
func (a *MouseAssembler) Reset() {
	a.n = 0
	a.ackPending = 0
}

func (a *MouseAssembler) decode() MousePacket {
	head := a.buf[0]
	dx := int16(a.buf[1])
	if head&mouseSignX != 0 {
		dx -= 256
	}
	dy := int16(a.buf[2])
	if head&mouseSignY != 0 {
		dy -= 256
	}
	if head&mouseOverflowX != 0 {
		dx = overflowDelta(head&mouseSignX != 0)
	}
	if head&mouseOverflowY != 0 {
		dy = overflowDelta(head&mouseSignY != 0)
	}
	return MousePacket{
		Buttons: head & mouseButtonMask,
		DX:      clampDelta(dx),
		DY:      clampDelta(dy),
	}
}

func overflowDelta(negative bool) int16 {
	if negative {
		return -255
	}
	return 255
}

// clampDelta folds a nine-bit delta into the report range. The floor
// is -127 so the result is always safely negatable.
func clampDelta(v int16) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
