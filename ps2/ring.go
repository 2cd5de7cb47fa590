package ps2

// BufferSize is the capacity of each ring buffer of a link, one per
// direction.
const BufferSize = 32

// ring is a fixed-capacity byte queue. The zero value is empty and
// ready to use; it never allocates. It is not internally synchronized:
// the Link brackets every access with its critical section.
type ring struct {
	buf   [BufferSize]byte
	head  int
	count int
}

func (r *ring) len() int { return r.count }

func (r *ring) free() int { return BufferSize - r.count }

func (r *ring) empty() bool { return r.count == 0 }

func (r *ring) full() bool { return r.count == BufferSize }

// push appends b, reporting whether there was room.
func (r *ring) push(b byte) bool {
	if r.count == BufferSize {
		return false
	}
	r.buf[(r.head+r.count)%BufferSize] = b
	r.count++
	return true
}

// pop removes and returns the oldest byte.
func (r *ring) pop() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.head]
	r.head = (r.head + 1) % BufferSize
	r.count--
	return b, true
}

// peek returns the oldest byte without removing it.
func (r *ring) peek() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	return r.buf[r.head], true
}

// reset discards all queued bytes.
func (r *ring) reset() {
	r.head = 0
	r.count = 0
}
