package regbus

import (
	"context"
	"sync"

	"github.com/ardnew/softhid/pkg"
)

// Loopback connects a Bus directly to a Handler in the same process,
// with no transport in between. It serves tests and hosted setups
// where bridge and host share an address space.
type Loopback struct {
	handler Handler

	mu     sync.Mutex
	level  bool
	raised chan struct{} // closed when level goes high
	closed bool
	done   chan struct{}
}

var _ Bus = (*Loopback)(nil)

// NewLoopback returns a Bus that calls h directly.
func NewLoopback(h Handler) *Loopback {
	return &Loopback{
		handler: h,
		raised:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Interrupt reflects the device's interrupt line. Asserting wakes
// blocked WaitInterrupt callers; deasserting arms the next wait.
func (l *Loopback) Interrupt(asserted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if asserted == l.level {
		return
	}
	l.level = asserted
	if asserted {
		close(l.raised)
	} else {
		l.raised = make(chan struct{})
	}
}

// ReadRegister implements Bus.
func (l *Loopback) ReadRegister(ctx context.Context, reg uint16, buf []byte) (int, error) {
	if err := l.check(ctx); err != nil {
		return 0, err
	}
	return l.handler.ReadRegister(reg, buf)
}

// WriteRegister implements Bus.
func (l *Loopback) WriteRegister(ctx context.Context, reg uint16, data []byte) error {
	if err := l.check(ctx); err != nil {
		return err
	}
	return l.handler.WriteRegister(reg, data)
}

// WaitInterrupt implements Bus. It returns immediately while the
// interrupt line is asserted.
func (l *Loopback) WaitInterrupt(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return pkg.ErrBusClosed
	}
	if l.level {
		l.mu.Unlock()
		return nil
	}
	raised := l.raised
	l.mu.Unlock()

	select {
	case <-raised:
		return nil
	case <-l.done:
		return pkg.ErrBusClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Bus.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}

func (l *Loopback) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return pkg.ErrBusClosed
	}
	return nil
}
