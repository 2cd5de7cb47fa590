package bridge

import "testing"

// feedPacket pushes three bytes and returns the decoded packet.
func feedPacket(t *testing.T, a *MouseAssembler, b0, b1, b2 byte) MousePacket {
	t.Helper()
	for _, b := range [...]byte{b0, b1} {
		if _, ok := a.Feed(b); ok {
			t.Fatalf("Feed(%#02x) completed a packet early", b)
		}
	}
	p, ok := a.Feed(b2)
	if !ok {
		t.Fatalf("Feed(%#02x) did not complete the packet", b2)
	}
	return p
}

func TestMouseAssembler_Packet(t *testing.T) {
	var a MouseAssembler

	p := feedPacket(t, &a, mouseSync|MouseButtonLeft, 10, 20)
	if p.Buttons != MouseButtonLeft {
		t.Errorf("Buttons = %#02x, want %#02x", p.Buttons, MouseButtonLeft)
	}
	if p.DX != 10 || p.DY != 20 {
		t.Errorf("deltas = (%d, %d), want (10, 20)", p.DX, p.DY)
	}
	if got := a.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}
}

func TestMouseAssembler_NegativeDeltas(t *testing.T) {
	var a MouseAssembler

	p := feedPacket(t, &a, mouseSync|mouseSignX|mouseSignY, 0xFF, 0xF6)
	if p.DX != -1 {
		t.Errorf("DX = %d, want -1", p.DX)
	}
	if p.DY != -10 {
		t.Errorf("DY = %d, want -10", p.DY)
	}
}

func TestMouseAssembler_Overflow(t *testing.T) {
	var a MouseAssembler

	p := feedPacket(t, &a, mouseSync|mouseOverflowX, 0x00, 0x00)
	if p.DX != 127 {
		t.Errorf("DX with overflow = %d, want 127", p.DX)
	}

	p = feedPacket(t, &a, mouseSync|mouseSignY|mouseOverflowY, 0x00, 0x01)
	if p.DY != -127 {
		t.Errorf("DY with negative overflow = %d, want -127", p.DY)
	}
}

func TestMouseAssembler_Resync(t *testing.T) {
	var a MouseAssembler

	// Bytes without the sync bit are hunted past.
	for _, b := range []byte{0x00, 0x07} {
		if _, ok := a.Feed(b); ok {
			t.Fatalf("Feed(%#02x) decoded a packet from a stray byte", b)
		}
	}
	if got := a.Dropped(); got != 2 {
		t.Fatalf("Dropped() = %d, want 2", got)
	}

	p := feedPacket(t, &a, mouseSync|MouseButtonRight, 1, 2)
	if p.Buttons != MouseButtonRight || p.DX != 1 || p.DY != 2 {
		t.Errorf("packet after resync = %+v", p)
	}
}

func TestMouseAssembler_AckSwallowed(t *testing.T) {
	var a MouseAssembler
	a.ExpectAck()

	// Reset chatter and the acknowledge arrive before streaming starts.
	for _, b := range []byte{mouseSelfTestPassed, mouseDeviceID, mouseAck} {
		if _, ok := a.Feed(b); ok {
			t.Fatalf("Feed(%#02x) decoded a packet from protocol chatter", b)
		}
	}
	if got := a.Dropped(); got != 0 {
		t.Errorf("Dropped() = %d, want 0", got)
	}

	// With the acknowledge consumed, 0xAA is stream data again: it
	// carries the sync bit, so it opens a packet.
	p := feedPacket(t, &a, mouseSelfTestPassed, 0, 0)
	if p.Buttons != mouseSelfTestPassed&mouseButtonMask {
		t.Errorf("Buttons = %#02x, want %#02x", p.Buttons, mouseSelfTestPassed&mouseButtonMask)
	}
}

func TestMouseAssembler_Reset(t *testing.T) {
	var a MouseAssembler
	a.ExpectAck()

	if _, ok := a.Feed(mouseSync); ok {
		t.Fatal("Feed() completed a packet from one byte")
	}
	a.Reset()

	// The partial packet and armed acknowledge are both gone.
	p := feedPacket(t, &a, mouseSync, 3, 4)
	if p.DX != 3 || p.DY != 4 {
		t.Errorf("packet after Reset = %+v", p)
	}
}
