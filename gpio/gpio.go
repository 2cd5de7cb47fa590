package gpio

// Level represents the logic level of a digital line.
type Level bool

// Line levels. Bridge-facing lines idle high via pull-ups; peripherals
// signal by pulling low.
const (
	Low  Level = false
	High Level = true
)

// String returns a human-readable level name.
func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Mode configures the direction and pull of a pin.
type Mode uint8

// Pin modes.
const (
	ModeInput       Mode = iota // High-impedance input
	ModeInputPullup             // Input with internal pull-up
	ModeOutput                  // Driven output
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeInputPullup:
		return "input-pullup"
	case ModeOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Pin is a single digital I/O line.
//
// Platform ports map these operations onto pin registers. All methods
// must be safe to call from an edge callback and must not block.
type Pin interface {
	// Read samples the current line level.
	Read() Level

	// Write sets the output latch. The level reaches the line only
	// while the pin mode is ModeOutput.
	Write(Level)

	// SetMode reconfigures the pin direction.
	SetMode(Mode)
}

// Clock is a monotonic microsecond counter.
//
// The counter may wrap; consumers comparing deadlines must use
// wraparound-safe signed deltas at whatever truncated width they keep.
type Clock interface {
	Micros() uint32
}

// EdgeNotifier is implemented by pins that can report level transitions.
// The platform invokes the registered function on every transition of
// the line. The callback runs in edge (interrupt) context: it must not
// block and must not log.
type EdgeNotifier interface {
	NotifyEdge(func())
}

// DriveLow configures p as an output driven low.
func DriveLow(p Pin) {
	p.Write(Low)
	p.SetMode(ModeOutput)
}

// Release returns p to a pulled-up input, letting the line float high
// unless the peripheral holds it low.
func Release(p Pin) {
	p.SetMode(ModeInputPullup)
}
