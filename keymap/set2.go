package keymap

// set2Base maps single-byte Scan Code Set 2 make codes to usages.
// Unused slots hold KeyNone.
var set2Base = [256]Usage{
	0x01: KeyF9,
	0x03: KeyF5,
	0x04: KeyF3,
	0x05: KeyF1,
	0x06: KeyF2,
	0x07: KeyF12,
	0x09: KeyF10,
	0x0A: KeyF8,
	0x0B: KeyF6,
	0x0C: KeyF4,
	0x0D: KeyTab,
	0x0E: KeyGrave,
	0x11: KeyLeftAlt,
	0x12: KeyLeftShift,
	0x14: KeyLeftCtrl,
	0x15: KeyQ,
	0x16: Key1,
	0x1A: KeyZ,
	0x1B: KeyS,
	0x1C: KeyA,
	0x1D: KeyW,
	0x1E: Key2,
	0x21: KeyC,
	0x22: KeyX,
	0x23: KeyD,
	0x24: KeyE,
	0x25: Key4,
	0x26: Key3,
	0x29: KeySpace,
	0x2A: KeyV,
	0x2B: KeyF,
	0x2C: KeyT,
	0x2D: KeyR,
	0x2E: Key5,
	0x31: KeyN,
	0x32: KeyB,
	0x33: KeyH,
	0x34: KeyG,
	0x35: KeyY,
	0x36: Key6,
	0x3A: KeyM,
	0x3B: KeyJ,
	0x3C: KeyU,
	0x3D: Key7,
	0x3E: Key8,
	0x41: KeyComma,
	0x42: KeyK,
	0x43: KeyI,
	0x44: KeyO,
	0x45: Key0,
	0x46: Key9,
	0x49: KeyDot,
	0x4A: KeySlash,
	0x4B: KeyL,
	0x4C: KeySemicolon,
	0x4D: KeyP,
	0x4E: KeyMinus,
	0x52: KeyQuote,
	0x54: KeyLeftBrace,
	0x55: KeyEqual,
	0x58: KeyCapsLock,
	0x59: KeyRightShift,
	0x5A: KeyEnter,
	0x5B: KeyRightBrace,
	0x5D: KeyBackslash,
	0x61: KeyIntlBackslash,
	0x66: KeyBackspace,
	0x69: KeyKP1,
	0x6B: KeyKP4,
	0x6C: KeyKP7,
	0x70: KeyKP0,
	0x71: KeyKPDot,
	0x72: KeyKP2,
	0x73: KeyKP5,
	0x74: KeyKP6,
	0x75: KeyKP8,
	0x76: KeyEscape,
	0x77: KeyNumLock,
	0x78: KeyF11,
	0x79: KeyKPPlus,
	0x7A: KeyKP3,
	0x7B: KeyKPMinus,
	0x7C: KeyKPAsterisk,
	0x7D: KeyKP9,
	0x7E: KeyScrollLock,
	0x83: KeyF7,
}

// set2Extended maps 0xE0-prefixed make codes to usages.
var set2Extended = [256]Usage{
	0x11: KeyRightAlt,
	0x14: KeyRightCtrl,
	0x1F: KeyLeftGUI,
	0x27: KeyRightGUI,
	0x2F: KeyApplication,
	0x4A: KeyKPSlash,
	0x5A: KeyKPEnter,
	0x69: KeyEnd,
	0x6B: KeyLeft,
	0x6C: KeyHome,
	0x70: KeyInsert,
	0x71: KeyDelete,
	0x72: KeyDown,
	0x74: KeyRight,
	0x75: KeyUp,
	0x7A: KeyPageDown,
	0x7C: KeyPrintScreen,
	0x7D: KeyPageUp,
}

// set2Code locates a usage within the Set 2 tables.
type set2Code struct {
	code     byte
	extended bool
	ok       bool
}

var set2ByUsage [256]set2Code

func init() {
	for code, u := range set2Base {
		if u != KeyNone {
			set2ByUsage[u] = set2Code{byte(code), false, true}
		}
	}
	for code, u := range set2Extended {
		if u != KeyNone {
			set2ByUsage[u] = set2Code{byte(code), true, true}
		}
	}
}

// MakeCode appends the Scan Code Set 2 make sequence for a usage to
// dst and reports whether the usage has one. Pause has no standalone
// make code and always reports false.
func MakeCode(dst []byte, u Usage) ([]byte, bool) {
	c := set2ByUsage[u]
	if !c.ok {
		return dst, false
	}
	if c.extended {
		dst = append(dst, codeExtended)
	}
	return append(dst, c.code), true
}

// BreakCode appends the Scan Code Set 2 break sequence for a usage to
// dst and reports whether the usage has one.
func BreakCode(dst []byte, u Usage) ([]byte, bool) {
	c := set2ByUsage[u]
	if !c.ok {
		return dst, false
	}
	if c.extended {
		dst = append(dst, codeExtended)
	}
	return append(dst, codeBreak, c.code), true
}
