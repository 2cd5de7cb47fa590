// Package keymap translates PS/2 Scan Code Set 2 byte streams into HID
// Keyboard/Keypad page usages and folds the resulting key transitions
// into boot keyboard report state.
//
// The Decoder consumes one byte at a time, exactly as bytes drain from
// a link's receive buffer. Break (0xF0) and extended (0xE0) prefixes
// carry over between calls, so a sequence may be fed across any number
// of polls. Standalone protocol responses from the keyboard, such as
// acknowledge and self-test results, are filtered out and counted
// rather than decoded.
package keymap

import "github.com/ardnew/softhid/pkg"

// Usage is a HID Keyboard/Keypad page usage ID.
type Usage uint8

// Keyboard/Keypad page usages.
const (
	KeyNone          Usage = 0x00
	KeyErrorRollOver Usage = 0x01
	KeyA             Usage = 0x04
	KeyB             Usage = 0x05
	KeyC             Usage = 0x06
	KeyD             Usage = 0x07
	KeyE             Usage = 0x08
	KeyF             Usage = 0x09
	KeyG             Usage = 0x0A
	KeyH             Usage = 0x0B
	KeyI             Usage = 0x0C
	KeyJ             Usage = 0x0D
	KeyK             Usage = 0x0E
	KeyL             Usage = 0x0F
	KeyM             Usage = 0x10
	KeyN             Usage = 0x11
	KeyO             Usage = 0x12
	KeyP             Usage = 0x13
	KeyQ             Usage = 0x14
	KeyR             Usage = 0x15
	KeyS             Usage = 0x16
	KeyT             Usage = 0x17
	KeyU             Usage = 0x18
	KeyV             Usage = 0x19
	KeyW             Usage = 0x1A
	KeyX             Usage = 0x1B
	KeyY             Usage = 0x1C
	KeyZ             Usage = 0x1D
	Key1             Usage = 0x1E
	Key2             Usage = 0x1F
	Key3             Usage = 0x20
	Key4             Usage = 0x21
	Key5             Usage = 0x22
	Key6             Usage = 0x23
	Key7             Usage = 0x24
	Key8             Usage = 0x25
	Key9             Usage = 0x26
	Key0             Usage = 0x27
	KeyEnter         Usage = 0x28
	KeyEscape        Usage = 0x29
	KeyBackspace     Usage = 0x2A
	KeyTab           Usage = 0x2B
	KeySpace         Usage = 0x2C
	KeyMinus         Usage = 0x2D
	KeyEqual         Usage = 0x2E
	KeyLeftBrace     Usage = 0x2F
	KeyRightBrace    Usage = 0x30
	KeyBackslash     Usage = 0x31
	KeySemicolon     Usage = 0x33
	KeyQuote         Usage = 0x34
	KeyGrave         Usage = 0x35
	KeyComma         Usage = 0x36
	KeyDot           Usage = 0x37
	KeySlash         Usage = 0x38
	KeyCapsLock      Usage = 0x39
	KeyF1            Usage = 0x3A
	KeyF2            Usage = 0x3B
	KeyF3            Usage = 0x3C
	KeyF4            Usage = 0x3D
	KeyF5            Usage = 0x3E
	KeyF6            Usage = 0x3F
	KeyF7            Usage = 0x40
	KeyF8            Usage = 0x41
	KeyF9            Usage = 0x42
	KeyF10           Usage = 0x43
	KeyF11           Usage = 0x44
	KeyF12           Usage = 0x45
	KeyPrintScreen   Usage = 0x46
	KeyScrollLock    Usage = 0x47
	KeyPause         Usage = 0x48
	KeyInsert        Usage = 0x49
	KeyHome          Usage = 0x4A
	KeyPageUp        Usage = 0x4B
	KeyDelete        Usage = 0x4C
	KeyEnd           Usage = 0x4D
	KeyPageDown      Usage = 0x4E
	KeyRight         Usage = 0x4F
	KeyLeft          Usage = 0x50
	KeyDown          Usage = 0x51
	KeyUp            Usage = 0x52
	KeyNumLock       Usage = 0x53
	KeyKPSlash       Usage = 0x54
	KeyKPAsterisk    Usage = 0x55
	KeyKPMinus       Usage = 0x56
	KeyKPPlus        Usage = 0x57
	KeyKPEnter       Usage = 0x58
	KeyKP1           Usage = 0x59
	KeyKP2           Usage = 0x5A
	KeyKP3           Usage = 0x5B
	KeyKP4           Usage = 0x5C
	KeyKP5           Usage = 0x5D
	KeyKP6           Usage = 0x5E
	KeyKP7           Usage = 0x5F
	KeyKP8           Usage = 0x60
	KeyKP9           Usage = 0x61
	KeyKP0           Usage = 0x62
	KeyKPDot         Usage = 0x63
	KeyIntlBackslash Usage = 0x64
	KeyApplication   Usage = 0x65
	KeyLeftCtrl      Usage = 0xE0
	KeyLeftShift     Usage = 0xE1
	KeyLeftAlt       Usage = 0xE2
	KeyLeftGUI       Usage = 0xE3
	KeyRightCtrl     Usage = 0xE4
	KeyRightShift    Usage = 0xE5
	KeyRightAlt      Usage = 0xE6
	KeyRightGUI      Usage = 0xE7
)

// Keyboard modifier bits of the boot report's first byte.
const (
	ModLeftCtrl   = 1 << 0
	ModLeftShift  = 1 << 1
	ModLeftAlt    = 1 << 2
	ModLeftGUI    = 1 << 3
	ModRightCtrl  = 1 << 4
	ModRightShift = 1 << 5
	ModRightAlt   = 1 << 6
	ModRightGUI   = 1 << 7
)

// Scan Code Set 2 prefix bytes.
const (
	codeBreak    = 0xF0
	codeExtended = 0xE0
	codePause    = 0xE1
)

// Keyboard protocol responses, meaningful only outside a prefix
// sequence.
const (
	respOverrun      = 0x00
	respSelfTestPass = 0xAA
	respEcho         = 0xEE
	respAck          = 0xFA
	respSelfTestFail = 0xFC
	respResend       = 0xFE
	respError        = 0xFF
)

// pauseTail is how many bytes follow 0xE1 in the Pause key's fixed
// make-and-break burst.
const pauseTail = 7

// Event is one decoded key transition.
type Event struct {
	Usage   Usage
	Pressed bool
}

// Stats counts decoder activity.
type Stats struct {
	Bytes    uint32 // Scancode bytes fed
	Events   uint32 // Key transitions produced
	Protocol uint32 // Standalone protocol responses filtered
	Unknown  uint32 // Unmapped scancodes dropped
}

// Decoder turns a Scan Code Set 2 byte stream into key events.
// The zero value is ready to use.
type Decoder struct {
	breakPending bool
	extended     bool
	pauseSkip    uint8
	stats        Stats
}

// Feed consumes one scancode byte and returns the key event it
// completes, if any. Prefix bytes and filtered bytes return no event.
func (d *Decoder) Feed(b byte) (Event, bool) {
	d.stats.Bytes++

	// Pause sends its entire make-and-break burst in one go. The press
	// was emitted at 0xE1; the release is emitted once the tail has
	// been swallowed.
	if d.pauseSkip > 0 {
		d.pauseSkip--
		if d.pauseSkip == 0 {
			d.stats.Events++
			return Event{KeyPause, false}, true
		}
		return Event{}, false
	}

	switch b {
	case codeBreak:
		d.breakPending = true
		return Event{}, false
	case codeExtended:
		d.extended = true
		return Event{}, false
	case codePause:
		d.pauseSkip = pauseTail
		d.stats.Events++
		return Event{KeyPause, true}, true
	}

	if !d.breakPending && !d.extended {
		switch b {
		case respOverrun, respSelfTestPass, respEcho, respAck,
			respSelfTestFail, respResend, respError:
			d.stats.Protocol++
			return Event{}, false
		}
	}

	pressed := !d.breakPending
	extended := d.extended
	d.breakPending = false
	d.extended = false

	// Fake shifts padded around PrintScreen and the grey keys carry no
	// state of their own.
	if extended && (b == 0x12 || b == 0x59) {
		return Event{}, false
	}

	var usage Usage
	if extended {
		usage = set2Extended[b]
	} else {
		usage = set2Base[b]
	}
	if usage == KeyNone {
		d.stats.Unknown++
		pkg.LogDebug(pkg.ComponentKeymap, "unmapped scancode",
			"code", b, "extended", extended)
		return Event{}, false
	}

	d.stats.Events++
	return Event{usage, pressed}, true
}

// Reset clears prefix state between bytes of a sequence, for use after
// the stream source itself was reset.
func (d *Decoder) Reset() {
	d.breakPending = false
	d.extended = false
	d.pauseSkip = 0
}

// Stats returns a snapshot of the decoder's counters.
func (d *Decoder) Stats() Stats { return d.stats }

// maxPressed is how many concurrently held keys the tracker remembers.
// Presses beyond it are dropped until something is released.
const maxPressed = 16

// Keyboard folds key events into boot keyboard report state: one
// modifier byte and up to six concurrently pressed keys. The zero
// value is ready to use.
type Keyboard struct {
	modifiers uint8
	pressed   [maxPressed]Usage
	count     int
	dropped   uint32
}

// Apply folds one key event into the tracked state. Repeated presses
// of a held key, as typematic repeat produces, change nothing.
func (k *Keyboard) Apply(ev Event) {
	if bit, ok := modifierBit(ev.Usage); ok {
		if ev.Pressed {
			k.modifiers |= bit
		} else {
			k.modifiers &^= bit
		}
		return
	}
	if ev.Pressed {
		k.press(ev.Usage)
	} else {
		k.release(ev.Usage)
	}
}

func (k *Keyboard) press(u Usage) {
	for i := 0; i < k.count; i++ {
		if k.pressed[i] == u {
			return
		}
	}
	if k.count == len(k.pressed) {
		k.dropped++
		return
	}
	k.pressed[k.count] = u
	k.count++
}

func (k *Keyboard) release(u Usage) {
	for i := 0; i < k.count; i++ {
		if k.pressed[i] != u {
			continue
		}
		copy(k.pressed[i:], k.pressed[i+1:k.count])
		k.count--
		k.pressed[k.count] = KeyNone
		return
	}
}

// Report returns the boot report view of the tracked state. More than
// six held keys reports ErrorRollOver in every key slot, as the boot
// protocol requires.
func (k *Keyboard) Report() (modifiers uint8, keys [6]uint8) {
	if k.count > len(keys) {
		for i := range keys {
			keys[i] = uint8(KeyErrorRollOver)
		}
		return k.modifiers, keys
	}
	for i := 0; i < k.count; i++ {
		keys[i] = uint8(k.pressed[i])
	}
	return k.modifiers, keys
}

// Reset releases every tracked key and modifier.
func (k *Keyboard) Reset() {
	*k = Keyboard{}
}

func modifierBit(u Usage) (uint8, bool) {
	if u < KeyLeftCtrl || u > KeyRightGUI {
		return 0, false
	}
	return 1 << (u - KeyLeftCtrl), true
}
