// Package pipe carries the register bus over named pipes (FIFOs),
// standing in for the I2C or UART wiring of a hardware deployment.
//
// The device side creates three FIFOs in a bus directory and serves
// request frames against a regbus.Handler; the host side opens the
// same FIFOs and issues transactions. Request and response frames
// share one shape: a one-byte opcode, a little-endian register
// address, a little-endian length, and for writes and read replies a
// payload of that length. For read requests the length field is the
// host's byte budget and no payload follows. The third FIFO carries
// single-byte interrupt signals from device to host.
package pipe

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/ardnew/softhid/pkg"
	"github.com/ardnew/softhid/regbus"
)

// MaxPayload is the largest frame payload either side will send.
const MaxPayload = 1024

// headerSize is the fixed frame prefix: opcode, register, length.
const headerSize = 5 // op (1) + reg (2) + len (2)

// Frame opcodes. Replies set the high bit of the request they answer.
const (
	opRead       = 0x01
	opWrite      = 0x02
	opReadReply  = 0x81
	opWriteReply = 0x82
	opError      = 0xEE
)

// Interrupt signal bytes (one-way, device to host).
const (
	sigDeassert = 0x00
	sigAssert   = 0x01
)

// Error codes carried in the payload of an opError frame.
const (
	codeGeneric         = 0x00
	codeInvalidRegister = 0x01
	codeInvalidCommand  = 0x02
	codeInvalidReport   = 0x03
	codeUnknownReportID = 0x04
	codeReportTooLong   = 0x05
	codeBufferTooSmall  = 0x06
)

// FIFO file names inside the bus directory.
const (
	fifoHostToDevice = "host_to_device"
	fifoDeviceToHost = "device_to_host"
	fifoInterrupts   = "interrupts"
)

// pollInterval is how often Dial re-checks for the device's FIFOs.
const pollInterval = 50 * time.Millisecond

// errToCode maps a handler error onto its wire code.
func errToCode(err error) byte {
	switch {
	case errors.Is(err, pkg.ErrInvalidRegister):
		return codeInvalidRegister
	case errors.Is(err, pkg.ErrInvalidCommand), errors.Is(err, pkg.ErrCommandTooShort):
		return codeInvalidCommand
	case errors.Is(err, pkg.ErrInvalidReport):
		return codeInvalidReport
	case errors.Is(err, pkg.ErrUnknownReportID):
		return codeUnknownReportID
	case errors.Is(err, pkg.ErrReportTooLong):
		return codeReportTooLong
	case errors.Is(err, pkg.ErrBufferTooSmall):
		return codeBufferTooSmall
	default:
		return codeGeneric
	}
}

// codeToErr maps a wire code back onto the sentinel it encodes.
func codeToErr(code byte) error {
	switch code {
	case codeInvalidRegister:
		return pkg.ErrInvalidRegister
	case codeInvalidCommand:
		return pkg.ErrInvalidCommand
	case codeInvalidReport:
		return pkg.ErrInvalidReport
	case codeUnknownReportID:
		return pkg.ErrUnknownReportID
	case codeReportTooLong:
		return pkg.ErrReportTooLong
	case codeBufferTooSmall:
		return pkg.ErrBufferTooSmall
	default:
		return pkg.ErrRequestFailed
	}
}

// Listener is the device side of a pipe bus. It owns the FIFOs and
// serves one host.
type Listener struct {
	busDir string

	hostToDeviceRead  *os.File // Device reads requests from host
	deviceToHostWrite *os.File // Device writes replies to host
	interruptsWrite   *os.File // Device writes interrupt signals

	mutex     sync.Mutex
	serving   bool
	level     bool
	closeCh   chan struct{}
	closeOnce sync.Once

	readBuf  [MaxPayload + headerSize]byte
	writeBuf [MaxPayload + headerSize]byte
}

// Listen creates the bus directory and its FIFOs and opens the device
// ends. The FIFOs are removed again by Close.
func Listen(busDir string) (*Listener, error) {
	l := &Listener{
		busDir:  busDir,
		closeCh: make(chan struct{}),
	}

	if err := os.MkdirAll(busDir, 0o755); err != nil {
		return nil, fmt.Errorf("create bus dir: %w", err)
	}

	for _, name := range []string{fifoHostToDevice, fifoDeviceToHost, fifoInterrupts} {
		if err := createFIFO(filepath.Join(busDir, name)); err != nil {
			l.cleanup()
			return nil, err
		}
	}

	var err error
	if l.deviceToHostWrite, err = openFIFO(filepath.Join(busDir, fifoDeviceToHost)); err != nil {
		l.cleanup()
		return nil, err
	}
	if l.interruptsWrite, err = openFIFO(filepath.Join(busDir, fifoInterrupts)); err != nil {
		l.cleanup()
		return nil, err
	}
	if l.hostToDeviceRead, err = openFIFO(filepath.Join(busDir, fifoHostToDevice)); err != nil {
		l.cleanup()
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentBus, "pipe bus listening", "busDir", busDir)
	return l, nil
}

// BusDir returns the directory holding the bus FIFOs.
func (l *Listener) BusDir() string { return l.busDir }

// Serve reads request frames and dispatches them to h until ctx ends
// or the listener is closed, both of which return nil. Serve may be
// called once.
func (l *Listener) Serve(ctx context.Context, h regbus.Handler) error {
	l.mutex.Lock()
	if l.serving {
		l.mutex.Unlock()
		return pkg.ErrAlreadyRunning
	}
	l.serving = true
	l.mutex.Unlock()

	for {
		err := l.serveOne(ctx, h)
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(err, pkg.ErrBusClosed) {
			return nil
		}
		return err
	}
}

// serveOne handles a single request frame.
func (l *Listener) serveOne(ctx context.Context, h regbus.Handler) error {
	header := l.readBuf[:headerSize]
	if _, err := l.readFull(ctx, header); err != nil {
		return err
	}

	op := header[0]
	reg := binary.LittleEndian.Uint16(header[1:3])
	length := int(binary.LittleEndian.Uint16(header[3:5]))

	switch op {
	case opRead:
		if length > MaxPayload {
			length = MaxPayload
		}
		buf := l.writeBuf[headerSize : headerSize+length]
		n, err := h.ReadRegister(reg, buf)
		if err != nil {
			pkg.LogDebug(pkg.ComponentBus, "read rejected", "reg", reg, "error", err)
			return l.sendError(reg, err)
		}
		if n > length {
			n = length
		}
		return l.reply(opReadReply, reg, n)

	case opWrite:
		if length > MaxPayload {
			if err := l.drain(ctx, length); err != nil {
				return err
			}
			return l.sendError(reg, pkg.ErrReportTooLong)
		}
		payload := l.readBuf[headerSize : headerSize+length]
		if _, err := l.readFull(ctx, payload); err != nil {
			return err
		}
		if err := h.WriteRegister(reg, payload); err != nil {
			pkg.LogDebug(pkg.ComponentBus, "write rejected", "reg", reg, "error", err)
			return l.sendError(reg, err)
		}
		return l.reply(opWriteReply, reg, 0)

	default:
		pkg.LogWarn(pkg.ComponentBus, "unknown frame opcode", "op", op)
		if length > 0 {
			if err := l.drain(ctx, length); err != nil {
				return err
			}
		}
		return l.sendError(reg, pkg.ErrInvalidCommand)
	}
}

// drain discards an oversized or unwanted payload to preserve frame
// alignment.
func (l *Listener) drain(ctx context.Context, length int) error {
	for length > 0 {
		n := length
		if n > len(l.readBuf) {
			n = len(l.readBuf)
		}
		if _, err := l.readFull(ctx, l.readBuf[:n]); err != nil {
			return err
		}
		length -= n
	}
	return nil
}

// reply sends a response frame whose payload already sits in writeBuf
// after the header.
func (l *Listener) reply(op byte, reg uint16, n int) error {
	l.writeBuf[0] = op
	binary.LittleEndian.PutUint16(l.writeBuf[1:3], reg)
	binary.LittleEndian.PutUint16(l.writeBuf[3:5], uint16(n))
	return writeAll(l.deviceToHostWrite, l.writeBuf[:headerSize+n])
}

func (l *Listener) sendError(reg uint16, cause error) error {
	l.writeBuf[headerSize] = errToCode(cause)
	l.writeBuf[0] = opError
	binary.LittleEndian.PutUint16(l.writeBuf[1:3], reg)
	binary.LittleEndian.PutUint16(l.writeBuf[3:5], 1)
	return writeAll(l.deviceToHostWrite, l.writeBuf[:headerSize+1])
}

// SetInterrupt drives the interrupt line seen by the host. Only level
// changes put a signal byte on the wire.
func (l *Listener) SetInterrupt(asserted bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if asserted == l.level || l.interruptsWrite == nil {
		return
	}
	l.level = asserted
	sig := byte(sigDeassert)
	if asserted {
		sig = sigAssert
	}
	if _, err := l.interruptsWrite.Write([]byte{sig}); err != nil {
		pkg.LogWarn(pkg.ComponentBus, "interrupt signal failed", "error", err)
	}
}

// Close stops Serve, closes the device ends, and removes the FIFOs.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
	})
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.cleanup()
	pkg.LogInfo(pkg.ComponentBus, "pipe bus closed", "busDir", l.busDir)
	return nil
}

func (l *Listener) cleanup() {
	if l.hostToDeviceRead != nil {
		l.hostToDeviceRead.Close()
		l.hostToDeviceRead = nil
	}
	if l.deviceToHostWrite != nil {
		l.deviceToHostWrite.Close()
		l.deviceToHostWrite = nil
	}
	if l.interruptsWrite != nil {
		l.interruptsWrite.Close()
		l.interruptsWrite = nil
	}
	for _, name := range []string{fifoHostToDevice, fifoDeviceToHost, fifoInterrupts} {
		os.Remove(filepath.Join(l.busDir, name))
	}
}

// readFull reads exactly len(buf) bytes, polling so that ctx
// cancellation and Close are honored between partial reads.
func (l *Listener) readFull(ctx context.Context, buf []byte) (int, error) {
	return readWithContext(ctx, l.closeCh, l.hostToDeviceRead, buf)
}

// Bus is the host side of a pipe bus.
type Bus struct {
	busDir string

	hostToDeviceWrite *os.File
	deviceToHostRead  *os.File
	interruptsRead    *os.File

	mutex sync.Mutex // one transaction in flight
	txBuf [MaxPayload + headerSize]byte
	rxBuf [MaxPayload + headerSize]byte

	closeCh   chan struct{}
	closeOnce sync.Once
}

var _ regbus.Bus = (*Bus)(nil)

// Dial waits for the device's FIFOs to appear in busDir, opens the
// host ends, and returns the connected bus.
func Dial(ctx context.Context, busDir string) (*Bus, error) {
	b := &Bus{
		busDir:  busDir,
		closeCh: make(chan struct{}),
	}

	for !fifosReady(busDir) {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("bus not ready: %w", pkg.ErrTimeout)
			}
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}

	var err error
	if b.hostToDeviceWrite, err = openFIFO(filepath.Join(busDir, fifoHostToDevice)); err != nil {
		b.cleanup()
		return nil, err
	}
	if b.deviceToHostRead, err = openFIFO(filepath.Join(busDir, fifoDeviceToHost)); err != nil {
		b.cleanup()
		return nil, err
	}
	if b.interruptsRead, err = openFIFO(filepath.Join(busDir, fifoInterrupts)); err != nil {
		b.cleanup()
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentBus, "pipe bus connected", "busDir", busDir)
	return b, nil
}

// ReadRegister implements regbus.Bus.
func (b *Bus) ReadRegister(ctx context.Context, reg uint16, buf []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	requested := len(buf)
	if requested > MaxPayload {
		requested = MaxPayload
	}
	if err := b.request(opRead, reg, requested, nil); err != nil {
		return 0, err
	}

	n, err := b.response(ctx, opReadReply, reg, requested)
	if err != nil {
		return 0, err
	}
	copy(buf, b.rxBuf[headerSize:headerSize+n])
	return n, nil
}

// WriteRegister implements regbus.Bus.
func (b *Bus) WriteRegister(ctx context.Context, reg uint16, data []byte) error {
	if len(data) > MaxPayload {
		return pkg.ErrReportTooLong
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()

	if err := b.request(opWrite, reg, len(data), data); err != nil {
		return err
	}
	_, err := b.response(ctx, opWriteReply, reg, 0)
	return err
}

// WaitInterrupt implements regbus.Bus. It blocks until an assert
// signal arrives on the interrupt FIFO. Earlier, still-unread asserts
// wake it immediately, so a wakeup may be stale.
func (b *Bus) WaitInterrupt(ctx context.Context) error {
	var sig [1]byte
	for {
		if _, err := readWithContext(ctx, b.closeCh, b.interruptsRead, sig[:]); err != nil {
			return err
		}
		if sig[0] == sigAssert {
			return nil
		}
	}
}

// Close implements regbus.Bus.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		close(b.closeCh)
	})
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.cleanup()
	return nil
}

func (b *Bus) cleanup() {
	if b.hostToDeviceWrite != nil {
		b.hostToDeviceWrite.Close()
		b.hostToDeviceWrite = nil
	}
	if b.deviceToHostRead != nil {
		b.deviceToHostRead.Close()
		b.deviceToHostRead = nil
	}
	if b.interruptsRead != nil {
		b.interruptsRead.Close()
		b.interruptsRead = nil
	}
}

// request sends one frame. The caller holds the transaction mutex.
func (b *Bus) request(op byte, reg uint16, length int, payload []byte) error {
	select {
	case <-b.closeCh:
		return pkg.ErrBusClosed
	default:
	}
	if b.hostToDeviceWrite == nil {
		return pkg.ErrBusClosed
	}

	b.txBuf[0] = op
	binary.LittleEndian.PutUint16(b.txBuf[1:3], reg)
	binary.LittleEndian.PutUint16(b.txBuf[3:5], uint16(length))
	n := copy(b.txBuf[headerSize:], payload)
	return writeAll(b.hostToDeviceWrite, b.txBuf[:headerSize+n])
}

// response reads one frame and checks it answers the outstanding
// request. The payload lands in rxBuf after the header.
func (b *Bus) response(ctx context.Context, wantOp byte, wantReg uint16, budget int) (int, error) {
	header := b.rxBuf[:headerSize]
	if _, err := readWithContext(ctx, b.closeCh, b.deviceToHostRead, header); err != nil {
		return 0, err
	}

	op := header[0]
	reg := binary.LittleEndian.Uint16(header[1:3])
	length := int(binary.LittleEndian.Uint16(header[3:5]))
	if length > MaxPayload {
		return 0, pkg.ErrInvalidResponse
	}
	if length > 0 {
		if _, err := readWithContext(ctx, b.closeCh, b.deviceToHostRead, b.rxBuf[headerSize:headerSize+length]); err != nil {
			return 0, err
		}
	}

	if reg != wantReg {
		return 0, pkg.ErrInvalidResponse
	}
	switch op {
	case wantOp:
		if length > budget {
			return 0, pkg.ErrInvalidResponse
		}
		return length, nil
	case opError:
		if length < 1 {
			return 0, pkg.ErrInvalidResponse
		}
		return 0, codeToErr(b.rxBuf[headerSize])
	default:
		return 0, pkg.ErrInvalidResponse
	}
}

// createFIFO creates a named pipe, replacing any stale file.
func createFIFO(path string) error {
	os.Remove(path)
	if err := syscall.Mkfifo(path, 0o666); err != nil {
		return fmt.Errorf("mkfifo %s: %w", filepath.Base(path), err)
	}
	return nil
}

// openFIFO opens a named pipe without blocking for a peer. Reads and
// writes are then mediated by deadlines rather than open-time
// rendezvous.
func openFIFO(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|syscall.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	return f, nil
}

// fifosReady reports whether all three bus FIFOs exist.
func fifosReady(busDir string) bool {
	for _, name := range []string{fifoHostToDevice, fifoDeviceToHost, fifoInterrupts} {
		info, err := os.Stat(filepath.Join(busDir, name))
		if err != nil || info.Mode()&os.ModeNamedPipe == 0 {
			return false
		}
	}
	return true
}

// readWithContext reads exactly len(buf) bytes, retrying on short
// reads with a deadline so cancellation is observed promptly.
func readWithContext(ctx context.Context, closeCh <-chan struct{}, f *os.File, buf []byte) (int, error) {
	if f == nil {
		return 0, pkg.ErrBusClosed
	}
	total := 0
	for total < len(buf) {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		case <-closeCh:
			return total, pkg.ErrBusClosed
		default:
		}

		f.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		n, err := f.Read(buf[total:])
		if n > 0 {
			total += n
		}
		if err != nil {
			if os.IsTimeout(err) {
				continue
			}
			// Close races the blocked read; closeCh always closes
			// before the file does.
			select {
			case <-closeCh:
				return total, pkg.ErrBusClosed
			default:
			}
			return total, err
		}
	}
	return total, nil
}

// writeAll writes the whole buffer, retrying partial writes.
func writeAll(f *os.File, data []byte) error {
	if f == nil {
		return pkg.ErrBusClosed
	}
	written := 0
	for written < len(data) {
		n, err := f.Write(data[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			return err
		}
	}
	return nil
}
